package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var known = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusDelivered: true,
	StatusCancelled: true,
}

func (s Status) Valid() bool { return known[s] }

// Cancellable: once an order is being prepared, stock and labor are
// committed, so cancellation stops being available.
func (s Status) Cancellable() bool { return s == StatusPending || s == StatusConfirmed }

// StockEffect is what a status transition does to product stock.
// The confirm edge deducts, leaving the confirmed state via cancel
// (or permanent delete) restores; every other edge is stock-neutral.
type StockEffect int

const (
	StockNone StockEffect = iota
	StockDeduct
	StockRestore
)

// EffectFor computes the stock side effect of moving from -> to.
// Re-requesting the current status is a no-op on stock, so the
// deduction can never be applied twice.
func EffectFor(from, to Status) StockEffect {
	switch {
	case to == StatusConfirmed && from != StatusConfirmed:
		return StockDeduct
	case to == StatusCancelled && from == StatusConfirmed:
		return StockRestore
	default:
		return StockNone
	}
}
