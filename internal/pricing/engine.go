// Package pricing computes the effective unit price of a product under
// the promotions valid at a given instant. The engine is a pure function
// of catalog state and the injected clock; it performs no writes.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuttiservices/wholesale-backend/internal/catalog"
)

var hundred = decimal.NewFromInt(100)

// PromotionSource supplies candidate promotions; the catalog repo is the
// production implementation.
type PromotionSource interface {
	Matching(ctx context.Context, productID int64, categoryID *int64, asOf time.Time) ([]catalog.Promotion, error)
	ActiveAsOf(ctx context.Context, asOf time.Time) ([]catalog.Promotion, error)
}

type Engine struct {
	Promos PromotionSource
	Now    func() time.Time // nil means time.Now
}

type Quote struct {
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	FinalPrice      decimal.Decimal // rounded to 2 decimals
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Quote prices a single product as of the engine clock.
func (e *Engine) Quote(ctx context.Context, p *catalog.Product) (Quote, error) {
	asOf := e.now()
	promos, err := e.Promos.Matching(ctx, p.ID, p.CategoryID, asOf)
	if err != nil {
		return Quote{}, err
	}
	return quoteFrom(p, promos, asOf), nil
}

// QuoteAll prices a whole listing with one promotion fetch.
func (e *Engine) QuoteAll(ctx context.Context, ps []catalog.Product) (map[int64]Quote, error) {
	asOf := e.now()
	promos, err := e.Promos.ActiveAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Quote, len(ps))
	for i := range ps {
		out[ps[i].ID] = quoteFrom(&ps[i], promos, asOf)
	}
	return out, nil
}

// quoteFrom applies the maximum valid discount. The window and is_active
// checks are repeated here so in-memory sources behave like the SQL one.
func quoteFrom(p *catalog.Product, promos []catalog.Promotion, asOf time.Time) Quote {
	discount := decimal.Zero
	for _, pr := range promos {
		if !pr.IsActive || asOf.Before(pr.StartDate) || asOf.After(pr.EndDate) {
			continue
		}
		if !pr.Matches(p) {
			continue
		}
		if pr.DiscountPercent.GreaterThan(discount) {
			discount = pr.DiscountPercent
		}
	}
	return Quote{
		UnitPrice:       p.Price,
		DiscountPercent: discount,
		FinalPrice:      FinalPrice(p.Price, discount),
	}
}

// FinalPrice is round2(price * (1 - discount/100)).
func FinalPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	return Subtotal(decimal.NewFromInt(1), price, discountPercent).Round(2)
}

// Subtotal is qty * price * (1 - discount/100), unrounded. Rounding is
// applied once at the point of display or totaling, never on intermediates.
func Subtotal(qty, price, discountPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	return qty.Mul(price).Mul(factor)
}
