package httpx

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/catalog"
	"github.com/tuttiservices/wholesale-backend/internal/pricing"
)

// CatalogStore is the slice of the catalog repo the handlers need.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	Category(ctx context.Context, id int64) (*catalog.Category, error)
	CreateCategory(ctx context.Context, c *catalog.Category) error
	UpdateCategory(ctx context.Context, id int64, p catalog.CategoryPatch) error
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error)
	Product(ctx context.Context, id int64) (*catalog.Product, error)
	CreateProduct(ctx context.Context, p *catalog.Product) error
	UpdateProduct(ctx context.Context, id int64, p catalog.ProductPatch) error
	DeactivateProduct(ctx context.Context, id int64) error
}

// ListingCache caches the rendered default product listing. The cached
// payload embeds prices, discounts and category names, so every catalog
// or promotion mutation must drop it.
type ListingCache interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, payload []byte) error
	Drop(ctx context.Context) error
}

type CatalogHandler struct {
	Repo   CatalogStore
	Pricer *pricing.Engine
	Cache  ListingCache // nil disables caching
}

// ---- categories ----

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cs == nil {
		cs = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	c, err := h.Repo.Category(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c == nil {
		writeError(w, apperr.E(apperr.KindNotFound, "category not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if c.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if err := h.Repo.CreateCategory(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	var p catalog.CategoryPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.Repo.UpdateCategory(r.Context(), id, p); err != nil {
		writeError(w, err)
		return
	}
	// The cached listing embeds category names.
	h.invalidate(r.Context())
	c, err := h.Repo.Category(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	if err := h.Repo.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(r.Context()) // products in the category lose their category name
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// ---- products ----

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f := catalog.ProductFilter{ActiveOnly: r.URL.Query().Get("active_only") != "false"}
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid category_id")
			return
		}
		f.CategoryID = &id
	}
	f.Search = r.URL.Query().Get("search")

	// Only the unfiltered storefront listing is cached; it is by far the
	// hottest read and the only one worth invalidating precisely.
	cacheable := h.Cache != nil && f.ActiveOnly && f.CategoryID == nil && f.Search == ""
	if cacheable {
		if raw, err := h.Cache.Get(r.Context()); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(raw)
			return
		}
	}

	ps, err := h.Repo.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.price(r.Context(), ps); err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}

	if cacheable {
		if raw, err := json.Marshal(ps); err == nil {
			if err := h.Cache.Set(r.Context(), raw); err != nil {
				log.Printf("catalog cache set: %v", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	p, err := h.Repo.Product(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, apperr.E(apperr.KindNotFound, "product not found"))
		return
	}
	q, err := h.Pricer.Quote(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	applyQuote(p, q)
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if p.Name == "" || p.Unit == "" {
		badRequest(w, "name and unit are required")
		return
	}
	if p.Price.IsNegative() || p.Stock.IsNegative() || p.MinOrder.IsNegative() {
		badRequest(w, "price, stock and min_order must not be negative")
		return
	}
	if ok, err := h.categoryExists(r.Context(), p.CategoryID); err != nil {
		writeError(w, err)
		return
	} else if !ok {
		badRequest(w, "category not found")
		return
	}
	if err := h.Repo.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	var p catalog.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if ok, err := h.categoryExists(r.Context(), p.CategoryID); err != nil {
		writeError(w, err)
		return
	} else if !ok {
		badRequest(w, "category not found")
		return
	}
	if err := h.Repo.UpdateProduct(r.Context(), id, p); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(r.Context())
	updated, err := h.Repo.Product(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteProduct deactivates rather than removes: order items keep their
// product reference and history stays intact.
func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	if err := h.Repo.DeactivateProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}

// ---- helpers ----

func (h *CatalogHandler) price(ctx context.Context, ps []catalog.Product) error {
	if len(ps) == 0 {
		return nil
	}
	quotes, err := h.Pricer.QuoteAll(ctx, ps)
	if err != nil {
		return err
	}
	for i := range ps {
		applyQuote(&ps[i], quotes[ps[i].ID])
	}
	return nil
}

func applyQuote(p *catalog.Product, q pricing.Quote) {
	if q.DiscountPercent.IsPositive() {
		d := q.DiscountPercent
		p.DiscountPercent = &d
	}
	fp := q.FinalPrice
	p.FinalPrice = &fp
}

func (h *CatalogHandler) categoryExists(ctx context.Context, id *int64) (bool, error) {
	if id == nil {
		return true, nil
	}
	c, err := h.Repo.Category(ctx, *id)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

func (h *CatalogHandler) invalidate(ctx context.Context) {
	dropCatalogCache(ctx, h.Cache)
}

// dropCatalogCache is shared with the promotions handler: discount
// changes alter listing prices just like product edits do.
func dropCatalogCache(ctx context.Context, cache ListingCache) {
	if cache == nil {
		return
	}
	if err := cache.Drop(ctx); err != nil {
		log.Printf("catalog cache invalidate: %v", err)
	}
}
