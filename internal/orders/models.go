package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuttiservices/wholesale-backend/internal/pricing"
)

type Order struct {
	ID     int64  `json:"id"`
	UserID *int64 `json:"user_id"`

	// Denormalized from users for responses; guest fields used when UserID is nil.
	UserName  string  `json:"user_name,omitempty"`
	UserPhone *string `json:"user_phone,omitempty"`

	GuestName     *string `json:"guest_name,omitempty"`
	GuestPhone    *string `json:"guest_phone,omitempty"`
	GuestAddress  *string `json:"guest_address,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`

	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Notes     string          `json:"notes"`
	Items     []Item          `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"-"`
}

// Item snapshots price and discount at order time; it never changes
// afterwards even if the product or promotion does.
type Item struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// LineSubtotal recomputes the display subtotal from the frozen snapshot.
func (it Item) LineSubtotal() decimal.Decimal {
	return pricing.Subtotal(it.Quantity, it.Price, it.Discount).Round(2)
}

type GuestProfile struct {
	Name          string `json:"guest_name"`
	Phone         string `json:"guest_phone"`
	Address       string `json:"guest_address"`
	PaymentMethod string `json:"payment_method"`
}

func (g GuestProfile) Complete() bool {
	return g.Name != "" && g.Phone != "" && g.Address != "" && g.PaymentMethod != ""
}

type ItemInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ListFilter struct {
	UserID *int64
	Status *Status
}
