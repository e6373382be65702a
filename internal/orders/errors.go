package orders

import (
	"github.com/shopspring/decimal"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
)

var (
	ErrEmptyOrder = apperr.E(apperr.KindValidation, "order must contain at least one item")

	ErrGuestProfile = apperr.E(apperr.KindValidation,
		"guest name, phone, address and payment method are all required")

	ErrOrderNotFound = apperr.E(apperr.KindNotFound, "order not found")

	ErrNotCancellable = apperr.E(apperr.KindBusinessRule,
		"only pending or confirmed orders can be cancelled")

	ErrNotOwner = apperr.E(apperr.KindForbidden, "order belongs to another user")
)

func errProductNotFound(id int64) *apperr.Error {
	return apperr.E(apperr.KindNotFound, "product %d not found", id)
}

func errProductInactive(name string) *apperr.Error {
	return apperr.E(apperr.KindBusinessRule, "product %s is not available", name)
}

func errQuantityNotPositive(name string) *apperr.Error {
	return apperr.E(apperr.KindValidation, "quantity for %s must be positive", name)
}

func errBelowMinOrder(name string, min decimal.Decimal) *apperr.Error {
	return apperr.E(apperr.KindBusinessRule, "minimum order quantity for %s is %s", name, min)
}

func errInvalidStatus(s Status) *apperr.Error {
	return apperr.E(apperr.KindValidation,
		"invalid status %q; valid statuses: pending, confirmed, preparing, ready, delivered, cancelled", s)
}

// StockShortage names the line that blocked a confirmation.
type StockShortage struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Available   decimal.Decimal `json:"available"`
	Requested   decimal.Decimal `json:"requested"`
}

func errInsufficientStock(s StockShortage) *apperr.Error {
	return apperr.WithDetails(apperr.KindBusinessRule, s,
		"insufficient stock for %s: available %s, requested %s", s.ProductName, s.Available, s.Requested)
}
