package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/catalog"
	"github.com/tuttiservices/wholesale-backend/internal/pricing"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// ---- fakes ----

type memCatalog struct {
	products map[int64]*catalog.Product
	lookups  int
}

func (m *memCatalog) Product(_ context.Context, id int64) (*catalog.Product, error) {
	m.lookups++
	return m.products[id], nil
}

type memUsers struct{ ids map[int64]bool }

func (m *memUsers) ByID(_ context.Context, id int64) (*users.User, error) {
	if !m.ids[id] {
		return nil, nil
	}
	return &users.User{ID: id, Role: users.RoleBuyer, IsActive: true}, nil
}

type stubPricer struct{ discounts map[int64]decimal.Decimal }

func (s *stubPricer) Quote(_ context.Context, p *catalog.Product) (pricing.Quote, error) {
	d := s.discounts[p.ID]
	return pricing.Quote{
		UnitPrice:       p.Price,
		DiscountPercent: d,
		FinalPrice:      pricing.FinalPrice(p.Price, d),
	}, nil
}

// memStore mirrors the repo's transactional semantics over maps: deduct
// validates every line before touching any stock, and Transition derives
// the effect from the stored status under the lock, as the repo does
// under the order-row lock.
type memStore struct {
	mu      sync.Mutex
	catalog *memCatalog
	orders  map[int64]*Order
	nextID  int64
	effects []StockEffect
}

func newMemStore(c *memCatalog) *memStore {
	return &memStore{catalog: c, orders: map[int64]*Order{}}
}

func (m *memStore) Insert(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	o.ID = m.nextID
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Order
	for _, o := range m.orders {
		if f.UserID != nil && (o.UserID == nil || *o.UserID != *f.UserID) {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) applyEffect(o *Order, effect StockEffect) error {
	switch effect {
	case StockDeduct:
		for _, it := range o.Items {
			p := m.catalog.products[it.ProductID]
			if p.Stock.LessThan(it.Quantity) {
				return errInsufficientStock(StockShortage{
					ProductID: p.ID, ProductName: p.Name, Available: p.Stock, Requested: it.Quantity,
				})
			}
		}
		for _, it := range o.Items {
			p := m.catalog.products[it.ProductID]
			p.Stock = p.Stock.Sub(it.Quantity)
		}
	case StockRestore:
		for _, it := range o.Items {
			p := m.catalog.products[it.ProductID]
			p.Stock = p.Stock.Add(it.Quantity)
		}
	}
	return nil
}

func (m *memStore) Transition(_ context.Context, id int64, to Status) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return "", ErrOrderNotFound
	}
	from := o.Status
	effect := EffectFor(from, to)
	if err := m.applyEffect(o, effect); err != nil {
		return "", err
	}
	m.effects = append(m.effects, effect)
	o.Status = to
	return from, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status == StatusConfirmed {
		if err := m.applyEffect(o, StockRestore); err != nil {
			return err
		}
	}
	delete(m.orders, id)
	return nil
}

// ---- fixtures ----

func product(id int64, price, stock, minOrder string, active bool) *catalog.Product {
	return &catalog.Product{
		ID:       id,
		Name:     fmt.Sprintf("product-%d", id),
		Price:    dec(price),
		Stock:    dec(stock),
		MinOrder: dec(minOrder),
		IsActive: active,
	}
}

func newService(products ...*catalog.Product) (*Service, *memCatalog, *memStore) {
	c := &memCatalog{products: map[int64]*catalog.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	st := newMemStore(c)
	svc := &Service{
		Store:   st,
		Catalog: c,
		Users:   &memUsers{ids: map[int64]bool{1: true}},
		Pricer:  &stubPricer{discounts: map[int64]decimal.Decimal{}},
	}
	return svc, c, st
}

var (
	buyer  = Identity{ID: 1, Role: users.RoleBuyer}
	other  = Identity{ID: 2, Role: users.RoleBuyer}
	admin  = Identity{ID: 9, Role: users.RoleAdmin}
	userID = ptr[int64](1)
)

// ---- creation ----

func TestCreateRejectsEmptyOrder(t *testing.T) {
	svc, _, st := newService()
	_, err := svc.Create(context.Background(), CreateInput{UserID: userID})
	require.ErrorIs(t, err, ErrEmptyOrder)
	require.Empty(t, st.orders)
}

func TestCreateGuestRequiresFullProfileBeforeLookups(t *testing.T) {
	svc, c, st := newService(product(1, "10.00", "5", "1", true))
	_, err := svc.Create(context.Background(), CreateInput{
		Guest: &GuestProfile{Name: "Ana", Phone: "555", Address: "Calle 1"}, // payment method missing
		Items: []ItemInput{{ProductID: 1, Quantity: dec("2")}},
	})
	require.ErrorIs(t, err, ErrGuestProfile)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Zero(t, c.lookups, "guest validation must run before any catalog lookup")
	require.Empty(t, st.orders)
}

func TestCreateFreezesDiscountedTotals(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "5", "1", true))
	svc.Pricer = &stubPricer{discounts: map[int64]decimal.Decimal{1: dec("10")}}

	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items:  []ItemInput{{ProductID: 1, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	require.True(t, o.Total.Equal(dec("18.00")), "total %s", o.Total)
	require.Len(t, o.Items, 1)
	require.True(t, o.Items[0].Subtotal.Equal(dec("18.00")))
	require.True(t, o.Items[0].Price.Equal(dec("10.00")))
	require.True(t, o.Items[0].Discount.Equal(dec("10")))
	require.Equal(t, StatusPending, o.Status)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _, st := newService()
	_, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items:  []ItemInput{{ProductID: 42, Quantity: dec("1")}},
	})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Empty(t, st.orders)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	svc, _, st := newService(product(1, "10.00", "5", "1", false))
	_, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items:  []ItemInput{{ProductID: 1, Quantity: dec("1")}},
	})
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	require.Empty(t, st.orders, "no order row may be persisted")
}

func TestMinimumOrderAppliesToBuyersNotAdmins(t *testing.T) {
	svc, _, _ := newService(product(1, "2.00", "100", "10", true))

	_, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items:  []ItemInput{{ProductID: 1, Quantity: dec("5")}},
	})
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))

	// Admin-placed orders may override product minimums.
	o, err := svc.Create(context.Background(), CreateInput{
		UserID:        userID,
		Items:         []ItemInput{{ProductID: 1, Quantity: dec("5")}},
		PlacedByAdmin: true,
	})
	require.NoError(t, err)
	require.True(t, o.Total.Equal(dec("10.00")))
}

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	svc, _, _ := newService(product(1, "2.00", "100", "1", true))
	_, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items:  []ItemInput{{ProductID: 1, Quantity: dec("0")}},
	})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ---- status transitions & stock ----

func confirmed(t *testing.T, svc *Service, items ...ItemInput) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), CreateInput{UserID: userID, Items: items})
	require.NoError(t, err)
	o, err = svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
	require.NoError(t, err)
	return o
}

func TestConfirmDecrementsStockExactlyOnce(t *testing.T) {
	p := product(1, "10.00", "5", "1", true)
	svc, _, _ := newService(p)

	o := confirmed(t, svc, ItemInput{ProductID: 1, Quantity: dec("2")})
	require.True(t, p.Stock.Equal(dec("3")), "stock %s", p.Stock)

	// Re-requesting confirmed is a no-op on stock.
	o2, err := svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, o2.Status)
	require.True(t, p.Stock.Equal(dec("3")), "second confirm must not deduct again")

	st := svc.Store.(*memStore)
	require.Equal(t, []StockEffect{StockDeduct, StockNone}, st.effects)
}

// Two racing confirmations of the same order must serialize on the
// stored status: the loser sees confirmed and deducts nothing.
func TestConcurrentConfirmationsDeductOnce(t *testing.T) {
	p := product(1, "10.00", "10", "1", true)
	svc, _, st := newService(p)

	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("2")}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
		}()
	}
	wg.Wait()

	require.True(t, p.Stock.Equal(dec("8")), "stock %s: quantity must come off exactly once", p.Stock)

	var deducts int
	for _, e := range st.effects {
		if e == StockDeduct {
			deducts++
		}
	}
	require.Equal(t, 1, deducts)
}

func TestConfirmShortfallLeavesAllStockUntouched(t *testing.T) {
	pa := product(1, "1.00", "10", "1", true)
	pb := product(2, "1.00", "1", "1", true)
	svc, _, _ := newService(pa, pb)

	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID,
		Items: []ItemInput{
			{ProductID: 1, Quantity: dec("4")}, // would succeed alone
			{ProductID: 2, Quantity: dec("3")}, // short
		},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	shortage, ok := ae.Details.(StockShortage)
	require.True(t, ok)
	require.Equal(t, int64(2), shortage.ProductID)
	require.True(t, shortage.Available.Equal(dec("1")))
	require.True(t, shortage.Requested.Equal(dec("3")))

	require.True(t, pa.Stock.Equal(dec("10")), "passing line must also stay untouched")
	require.True(t, pb.Stock.Equal(dec("1")))

	got, err := svc.Get(context.Background(), buyer, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status, "failed confirmation must not change status")
}

func TestCancelConfirmedRestoresStock(t *testing.T) {
	p := product(1, "10.00", "5", "1", true)
	svc, _, _ := newService(p)

	o := confirmed(t, svc, ItemInput{ProductID: 1, Quantity: dec("2")})
	require.True(t, p.Stock.Equal(dec("3")))

	require.NoError(t, svc.Cancel(context.Background(), buyer, o.ID))
	require.True(t, p.Stock.Equal(dec("5")), "cancel must restore pre-confirmation stock")
}

func TestCancelPendingDoesNotTouchStock(t *testing.T) {
	p := product(1, "10.00", "5", "1", true)
	svc, _, _ := newService(p)

	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("2")}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), buyer, o.ID))
	require.True(t, p.Stock.Equal(dec("5")), "nothing was deducted, nothing to restore")
}

func TestCancelAuthorization(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "5", "1", true))
	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), other, o.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.Cancel(context.Background(), admin, o.ID))

	// Already cancelled: no longer cancellable.
	err = svc.Cancel(context.Background(), admin, o.ID)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestDeliveredOrderNotCancellable(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "5", "1", true))
	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("1")}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusDelivered)
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), buyer, o.ID)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestDeletePermanentRestoresConfirmedStock(t *testing.T) {
	p := product(1, "10.00", "5", "1", true)
	svc, _, st := newService(p)

	o := confirmed(t, svc, ItemInput{ProductID: 1, Quantity: dec("2")})
	require.NoError(t, svc.DeletePermanent(context.Background(), o.ID))
	require.True(t, p.Stock.Equal(dec("5")))
	require.Empty(t, st.orders)
}

func TestDeletePermanentPendingSkipsRestore(t *testing.T) {
	p := product(1, "10.00", "5", "1", true)
	svc, _, st := newService(p)

	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePermanent(context.Background(), o.ID))
	require.True(t, p.Stock.Equal(dec("5")))
	require.Empty(t, st.orders)
}

func TestUpdateStatusRejectsUnknownTarget(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.UpdateStatus(context.Background(), 1, Status("shipped"))
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.UpdateStatus(context.Background(), 99, StatusReady)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

// ---- visibility ----

func TestGetScopedToOwnerUnlessAdmin(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "5", "1", true))
	o, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Items: []ItemInput{{ProductID: 1, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), other, o.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := svc.Get(context.Background(), admin, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
}

func TestListScopedToOwnerUnlessAdmin(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "50", "1", true))
	for _, uid := range []int64{1, 1, 2} {
		_, err := svc.Create(context.Background(), CreateInput{
			UserID: ptr(uid), Items: []ItemInput{{ProductID: 1, Quantity: dec("1")}},
		})
		require.NoError(t, err)
	}

	mine, err := svc.List(context.Background(), buyer, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	all, err := svc.List(context.Background(), admin, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAdminCreateRequiresExistingUser(t *testing.T) {
	svc, _, _ := newService(product(1, "10.00", "5", "1", true))
	_, err := svc.Create(context.Background(), CreateInput{
		UserID:        ptr[int64](77),
		Items:         []ItemInput{{ProductID: 1, Quantity: dec("1")}},
		PlacedByAdmin: true,
	})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
