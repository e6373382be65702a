package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName *string         `json:"category_name"`
	ImageURL     *string         `json:"image_url"`
	ImageURL2    *string         `json:"image_url_2"`
	Stock        decimal.Decimal `json:"stock"`
	MinOrder     decimal.Decimal `json:"min_order"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`

	// Populated from the pricing engine on reads; never persisted.
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	FinalPrice      *decimal.Decimal `json:"final_price,omitempty"`
}

type Promotion struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ProductID       *int64          `json:"product_id"`
	ProductName     *string         `json:"product_name"`
	CategoryID      *int64          `json:"category_id"`
	CategoryName    *string         `json:"category_name"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"-"`
}

// Matches reports whether the promotion applies to the given product.
// Window and is_active checks are the pricing engine's concern.
func (pr Promotion) Matches(p *Product) bool {
	if pr.ProductID != nil && *pr.ProductID == p.ID {
		return true
	}
	if pr.CategoryID != nil && p.CategoryID != nil && *pr.CategoryID == *p.CategoryID {
		return true
	}
	return false
}

// Patch types carry only the fields to change; nil means "leave as is".

type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Unit        *string          `json:"unit"`
	CategoryID  *int64           `json:"category_id"`
	ImageURL    *string          `json:"image_url"`
	ImageURL2   *string          `json:"image_url_2"`
	Stock       *decimal.Decimal `json:"stock"`
	MinOrder    *decimal.Decimal `json:"min_order"`
	IsActive    *bool            `json:"is_active"`
}

type PromotionPatch struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	ProductID       *int64           `json:"product_id"`
	CategoryID      *int64           `json:"category_id"`
	StartDate       *time.Time       `json:"start_date"`
	EndDate         *time.Time       `json:"end_date"`
	IsActive        *bool            `json:"is_active"`
}

type ProductFilter struct {
	CategoryID *int64
	Search     string
	ActiveOnly bool
}
