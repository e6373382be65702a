package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/catalog"
	kafkax "github.com/tuttiservices/wholesale-backend/internal/kafka"
	"github.com/tuttiservices/wholesale-backend/internal/pricing"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

// Identity is the authenticated caller as seen by the workflow.
type Identity struct {
	ID   int64
	Role string
}

func (i Identity) Admin() bool { return i.Role == users.RoleAdmin }

// Store persists orders. Multi-row writes (header + items, stock moves)
// happen inside a single transaction. Transition locks the order row,
// derives the stock effect from the status actually stored, applies
// effect and status change atomically and returns the prior status;
// deciding the effect from an earlier read would let two concurrent
// confirmations both deduct. Delete likewise restores stock based on
// the locked status.
type Store interface {
	Insert(ctx context.Context, o *Order) error
	// Get returns nil when the order does not exist.
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	Transition(ctx context.Context, id int64, to Status) (Status, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogStore looks up products for line validation and pricing.
type CatalogStore interface {
	Product(ctx context.Context, id int64) (*catalog.Product, error)
}

// UserDirectory verifies the target user of an admin-placed order.
type UserDirectory interface {
	ByID(ctx context.Context, id int64) (*users.User, error)
}

type Pricer interface {
	Quote(ctx context.Context, p *catalog.Product) (pricing.Quote, error)
}

// Publisher matches the kafka producer; nil disables eventing.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store   Store
	Catalog CatalogStore
	Users   UserDirectory
	Pricer  Pricer

	// Kafka producers per topic; either may be nil.
	Created       Publisher
	StatusChanged Publisher
	ServiceName   string
}

type CreateInput struct {
	UserID *int64        // nil for guest orders
	Guest  *GuestProfile // set only for guest orders
	Items  []ItemInput
	Notes  string
	// PlacedByAdmin skips the minimum-order check: admins may override
	// product minimums when placing orders on behalf of clients.
	PlacedByAdmin bool
}

// Create validates the requested lines, freezes prices and discounts as
// of now, and persists the order atomically. Any violation fails the
// whole operation; no partial order is ever written.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.Guest != nil && !in.Guest.Complete() {
		return nil, ErrGuestProfile
	}
	if in.PlacedByAdmin && in.UserID != nil {
		u, err := s.Users.ByID(ctx, *in.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apperr.E(apperr.KindNotFound, "user %d not found", *in.UserID)
		}
	}

	total := decimal.Zero
	items := make([]Item, 0, len(in.Items))
	for _, line := range in.Items {
		p, err := s.Catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errProductNotFound(line.ProductID)
		}
		if !p.IsActive {
			return nil, errProductInactive(p.Name)
		}
		if !line.Quantity.IsPositive() {
			return nil, errQuantityNotPositive(p.Name)
		}
		if !in.PlacedByAdmin && line.Quantity.LessThan(p.MinOrder) {
			return nil, errBelowMinOrder(p.Name, p.MinOrder)
		}

		q, err := s.Pricer.Quote(ctx, p)
		if err != nil {
			return nil, err
		}
		subtotal := pricing.Subtotal(line.Quantity, q.UnitPrice, q.DiscountPercent)
		total = total.Add(subtotal)
		items = append(items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			Price:       q.UnitPrice,
			Discount:    q.DiscountPercent,
			Subtotal:    subtotal.Round(2),
		})
	}

	o := &Order{
		UserID: in.UserID,
		Status: StatusPending,
		Total:  total.Round(2),
		Notes:  in.Notes,
		Items:  items,
	}
	if in.Guest != nil {
		o.GuestName = &in.Guest.Name
		o.GuestPhone = &in.Guest.Phone
		o.GuestAddress = &in.Guest.Address
		o.PaymentMethod = &in.Guest.PaymentMethod
		o.UserName = in.Guest.Name
	}
	if err := s.Store.Insert(ctx, o); err != nil {
		return nil, err
	}

	s.publishCreated(o)
	return o, nil
}

// Get returns the order if the caller may see it: owners see their own,
// admins see everything. Guest orders are admin-only after creation.
func (s *Service) Get(ctx context.Context, actor Identity, id int64) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if !actor.Admin() && !ownedBy(o, actor) {
		return nil, ErrNotOwner
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, actor Identity, status *Status) ([]Order, error) {
	f := ListFilter{Status: status}
	if !actor.Admin() {
		f.UserID = &actor.ID
	}
	return s.Store.List(ctx, f)
}

// UpdateStatus moves the order to the target status. The stock side
// effect of the edge (deduct on confirm, restore on cancel of a
// confirmed order) is derived and applied by the store in the same
// unit of work as the status write.
func (s *Service) UpdateStatus(ctx context.Context, id int64, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, errInvalidStatus(target)
	}
	from, err := s.Store.Transition(ctx, id, target)
	if err != nil {
		return nil, err
	}
	s.publishStatusChanged(id, from, target)

	return s.Store.Get(ctx, id)
}

// Cancel is available to the order's owner and to admins, and only
// while the order is still pending or confirmed. Cancelling a confirmed
// order puts the deducted stock back.
func (s *Service) Cancel(ctx context.Context, actor Identity, id int64) error {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOrderNotFound
	}
	if !actor.Admin() && !ownedBy(o, actor) {
		return ErrNotOwner
	}
	if !o.Status.Cancellable() {
		return ErrNotCancellable
	}
	from, err := s.Store.Transition(ctx, id, StatusCancelled)
	if err != nil {
		return err
	}
	s.publishStatusChanged(id, from, StatusCancelled)
	return nil
}

// DeletePermanent removes the order and its items. A confirmed order
// gets its stock restored first, same as cancellation.
func (s *Service) DeletePermanent(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

func ownedBy(o *Order, actor Identity) bool {
	return o.UserID != nil && *o.UserID == actor.ID
}

// ---- events ----

func (s *Service) publishCreated(o *Order) {
	if s.Created == nil {
		return
	}
	snaps := make([]ItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		snaps = append(snaps, ItemSnapshot{
			ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price, Discount: it.Discount,
		})
	}
	s.publish(s.Created, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID: o.ID, UserID: o.UserID, Guest: o.UserID == nil, Items: snaps, Total: o.Total,
	})
}

func (s *Service) publishStatusChanged(orderID int64, from, to Status) {
	if s.StatusChanged == nil {
		return
	}
	s.publish(s.StatusChanged, EventOrderStatusChanged, orderID, StatusChangedPayload{
		OrderID: orderID, From: from, To: to,
	})
}

func (s *Service) publish(p Publisher, eventType string, orderID int64, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: string(PartitionKey(orderID)),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
