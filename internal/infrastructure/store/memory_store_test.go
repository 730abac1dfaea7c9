package store

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockedInventory(t *testing.T, ids ...string) *MemoryInventoryStore {
	t.Helper()
	s := NewMemoryInventoryStore()
	for _, id := range ids {
		require.NoError(t, s.Put(context.Background(), inventory.Item{
			ID: id, Slug: "slug-" + id, Title: "Item " + id,
			Price: decimal.NewFromInt(10), Currency: "USD",
		}))
	}
	return s
}

// ====== Memory Inventory Tests ======

func TestMemoryInventory_Reserve_ExactlyOneWinner(t *testing.T) {
	s := stockedInventory(t, "item-1")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Reserve(context.Background(), "item-1")
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	item, err := s.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusReserved, item.Status)
}

func TestMemoryInventory_ReleaseAndSell(t *testing.T) {
	ctx := context.Background()
	s := stockedInventory(t, "a", "b")

	ok, _ := s.Reserve(ctx, "a")
	require.True(t, ok)

	// releasing an available item is a no-op
	require.NoError(t, s.Release(ctx, "b"))
	b, _ := s.Get(ctx, "b")
	assert.Equal(t, inventory.StatusAvailable, b.Status)

	require.NoError(t, s.MarkSold(ctx, []string{"a"}))
	a, _ := s.Get(ctx, "a")
	assert.Equal(t, inventory.StatusSold, a.Status)

	// a sold item never comes back
	require.NoError(t, s.Release(ctx, "a"))
	a, _ = s.Get(ctx, "a")
	assert.Equal(t, inventory.StatusSold, a.Status)

	ok, _ = s.Reserve(ctx, "a")
	assert.False(t, ok)

	assert.Error(t, s.MarkSold(ctx, []string{"b"}))
}

func TestMemoryInventory_GetBySlug(t *testing.T) {
	s := stockedInventory(t, "a")
	item, err := s.GetBySlug(context.Background(), "slug-a")
	require.NoError(t, err)
	assert.Equal(t, "a", item.ID)

	_, err = s.GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func TestSeedInventory(t *testing.T) {
	seed := `
- id: vase-1
  slug: blue-vase
  title: Blue Vase
  price: "120.00"
- id: bowl-1
  slug: red-bowl
  title: Red Bowl
  price: "30.50"
  currency: EUR
`
	s := NewMemoryInventoryStore()
	n, err := SeedInventory(context.Background(), s, strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bowl, err := s.GetBySlug(context.Background(), "red-bowl")
	require.NoError(t, err)
	assert.Equal(t, "EUR", bowl.Currency)
	assert.True(t, bowl.Available())

	// a second run leaves known items alone
	ok, err := s.Reserve(context.Background(), "vase-1")
	require.NoError(t, err)
	require.True(t, ok)
	n, err = SeedInventory(context.Background(), s, strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	vase, err := s.Get(context.Background(), "vase-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusReserved, vase.Status)

	_, err = SeedInventory(context.Background(), s, strings.NewReader(`- {id: x, slug: x, title: X, price: abc}`))
	assert.Error(t, err)
}

// ====== Memory Order Tests ======

func TestMemoryOrder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()
	o := testOrder()

	require.NoError(t, s.Create(ctx, o))
	assert.ErrorIs(t, s.Create(ctx, o), order.ErrDuplicateNumber)

	contact := o.Contact
	contact.City = "Salem"
	require.NoError(t, s.UpdateContact(ctx, o.Number, contact))

	require.NoError(t, s.RecordPayment(ctx, o.Number, order.Payment{PaymentID: "pay-1"}))
	assert.ErrorIs(t, s.UpdateContact(ctx, o.Number, contact), order.ErrStatusConflict)
	assert.ErrorIs(t, s.RecordPayment(ctx, o.Number, order.Payment{}), order.ErrStatusConflict)

	require.NoError(t, s.RecordShipment(ctx, o.Number, order.Shipment{Carrier: "UPS", TrackingNumber: "1Z"}))

	got, err := s.Get(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, "Salem", got.Contact.City)
	require.NotNil(t, got.Payment)
	require.NotNil(t, got.Shipment)
	assert.Equal(t, "1Z", got.Shipment.TrackingNumber)

	_, err = s.Get(ctx, "0000-0000-0000")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, s.SetStatus(ctx, "0000-0000-0000", order.StatusUnpaid, order.StatusCanceled, ""), order.ErrOrderNotFound)
}

func TestMemoryOrder_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()
	o := testOrder()
	require.NoError(t, s.Create(ctx, o))

	got, _ := s.Get(ctx, o.Number)
	got.Items[0].Title = "mutated"

	again, _ := s.Get(ctx, o.Number)
	assert.Equal(t, "Blue Vase", again.Items[0].Title)
}

// ====== Memory Session Tests ======

func TestMemorySession_SetSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewMemorySessionStore(time.Hour).WithClock(clock)

	require.NoError(t, s.Set(ctx, "old", "cart", []byte("1")))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Set(ctx, "new", "cart", []byte("2")))

	ids, err := s.Expired(ctx, now.Add(45*time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids)

	// touching the old session pushes its expiry out
	require.NoError(t, s.Set(ctx, "old", "last_activity", []byte("x")))
	ids, _ = s.Expired(ctx, now.Add(45*time.Minute), 0)
	assert.Empty(t, ids)

	ids, _ = s.Expired(ctx, now.Add(2*time.Hour), 1)
	assert.Len(t, ids, 1)
}

func TestMemorySession_DataSurvivesLogicalExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(time.Minute)
	require.NoError(t, s.Set(ctx, "sid", "cart", []byte("data")))

	ids, _ := s.Expired(ctx, time.Now().Add(time.Hour), 10)
	require.Equal(t, []string{"sid"}, ids)

	v, ok, err := s.Get(ctx, "sid", "cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", string(v))

	require.NoError(t, s.Destroy(ctx, "sid"))
	_, ok, _ = s.Get(ctx, "sid", "cart")
	assert.False(t, ok)
}

func TestMemorySession_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(time.Hour)
	require.NoError(t, s.Set(ctx, "sid", "cart", []byte("data")))
	require.NoError(t, s.Delete(ctx, "sid", "cart"))
	require.NoError(t, s.Delete(ctx, "unknown", "cart"))

	_, ok, err := s.Get(ctx, "sid", "cart")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySession_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(time.Hour)

	exists, err := s.Exists(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Set(ctx, "sid", "cart", []byte("data")))
	exists, _ = s.Exists(ctx, "sid")
	assert.True(t, exists)

	s.DropData("sid")
	exists, _ = s.Exists(ctx, "sid")
	assert.False(t, exists)
	ids, _ := s.Expired(ctx, time.Now().Add(2*time.Hour), 0)
	assert.Equal(t, []string{"sid"}, ids)
}
