package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/catalog"
)

// PromotionStore is the slice of the catalog repo the promotions
// handlers need; target validation reuses the product/category lookups.
type PromotionStore interface {
	ListPromotions(ctx context.Context, activeOnly bool, asOf time.Time) ([]catalog.Promotion, error)
	Promotion(ctx context.Context, id int64) (*catalog.Promotion, error)
	CreatePromotion(ctx context.Context, pr *catalog.Promotion) error
	UpdatePromotion(ctx context.Context, id int64, p catalog.PromotionPatch) error
	DeletePromotion(ctx context.Context, id int64) error
	Product(ctx context.Context, id int64) (*catalog.Product, error)
	Category(ctx context.Context, id int64) (*catalog.Category, error)
}

type PromotionsHandler struct {
	Repo  PromotionStore
	Cache ListingCache
	Now   func() time.Time // nil means time.Now
}

func (h *PromotionsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// list is the storefront view: promotions valid right now, unless
// active_only=false asks for everything.
func (h *PromotionsHandler) list(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") != "false"
	prs, err := h.Repo.ListPromotions(r.Context(), activeOnly, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	if prs == nil {
		prs = []catalog.Promotion{}
	}
	writeJSON(w, http.StatusOK, prs)
}

// listAll is the admin view including inactive and out-of-window promotions.
func (h *PromotionsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	prs, err := h.Repo.ListPromotions(r.Context(), false, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	if prs == nil {
		prs = []catalog.Promotion{}
	}
	writeJSON(w, http.StatusOK, prs)
}

func (h *PromotionsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid promotion id")
		return
	}
	pr, err := h.Repo.Promotion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if pr == nil {
		writeError(w, apperr.E(apperr.KindNotFound, "promotion not found"))
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *PromotionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var pr catalog.Promotion
	if err := json.NewDecoder(r.Body).Decode(&pr); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if pr.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if !pr.DiscountPercent.IsPositive() || pr.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		badRequest(w, "discount_percent must be between 0 and 100")
		return
	}
	if pr.StartDate.IsZero() || pr.EndDate.IsZero() || pr.EndDate.Before(pr.StartDate) {
		badRequest(w, "start_date must precede end_date")
		return
	}
	if err := h.validateTargets(r.Context(), pr.ProductID, pr.CategoryID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.CreatePromotion(r.Context(), &pr); err != nil {
		writeError(w, err)
		return
	}
	dropCatalogCache(r.Context(), h.Cache)
	writeJSON(w, http.StatusCreated, pr)
}

func (h *PromotionsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid promotion id")
		return
	}
	var p catalog.PromotionPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if p.DiscountPercent != nil &&
		(!p.DiscountPercent.IsPositive() || p.DiscountPercent.GreaterThan(decimal.NewFromInt(100))) {
		badRequest(w, "discount_percent must be between 0 and 100")
		return
	}
	if err := h.validateTargets(r.Context(), p.ProductID, p.CategoryID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.UpdatePromotion(r.Context(), id, p); err != nil {
		writeError(w, err)
		return
	}
	dropCatalogCache(r.Context(), h.Cache)
	pr, err := h.Repo.Promotion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *PromotionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid promotion id")
		return
	}
	if err := h.Repo.DeletePromotion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	dropCatalogCache(r.Context(), h.Cache)
	writeJSON(w, http.StatusOK, map[string]string{"message": "promotion deleted"})
}

func (h *PromotionsHandler) validateTargets(ctx context.Context, productID, categoryID *int64) error {
	if productID != nil {
		p, err := h.Repo.Product(ctx, *productID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.E(apperr.KindValidation, "product %d not found", *productID)
		}
	}
	if categoryID != nil {
		c, err := h.Repo.Category(ctx, *categoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.E(apperr.KindValidation, "category %d not found", *categoryID)
		}
	}
	return nil
}
