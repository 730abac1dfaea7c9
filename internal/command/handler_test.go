package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/unique-shop/internal/auth"
	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/domain/order"
	"github.com/example/unique-shop/internal/infrastructure/payment"
	"github.com/example/unique-shop/internal/infrastructure/store"
	"github.com/example/unique-shop/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *cart.Service, *mocks.MockInventoryStore) {
	t.Helper()
	inv := mocks.NewMockInventoryStore(
		inventory.Item{ID: "vase-1", Slug: "blue-vase", Title: "Blue Vase", Price: decimal.RequireFromString("120.00"), Currency: "USD"},
		inventory.Item{ID: "bowl-1", Slug: "red-bowl", Title: "Red Bowl", Price: decimal.RequireFromString("30.00"), Currency: "USD", Status: inventory.StatusSold},
		inventory.Item{ID: "cup-1", Slug: "tea-cup", Title: "Tea Cup", Price: decimal.RequireFromString("8.00"), Currency: "USD"},
	)
	sessions := store.NewMemorySessionStore(time.Hour)
	carts := cart.NewService(inv, sessions, nil, nil)
	orders := order.NewService(order.Dependencies{
		Orders:   store.NewMemoryOrderStore(),
		Carts:    carts,
		Sessions: sessions,
		Gateway:  payment.NewSandbox(),
		Tokens:   auth.NewOrderTokenService(strings.Repeat("x", 32), 0),
	}, order.Config{})
	return NewHandler(inv, carts, orders), carts, inv
}

func openCart(t *testing.T, carts *cart.Service) *cart.Cart {
	t.Helper()
	c, err := carts.Open(context.Background(), "sid")
	require.NoError(t, err)
	return c
}

func testContact() order.Contact {
	return order.Contact{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		StreetAddress: "1 Main St", City: "Portland", State: "OR", ZipCode: "97201",
	}
}

// ============================================
// Cart Command Tests
// ============================================

func TestHandler_AddToCart_Success(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)

	err := handler.AddToCart(context.Background(), c, AddToCart{ItemSlug: "blue-vase"})

	require.NoError(t, err)
	assert.True(t, c.Contains("vase-1"))
	assert.Equal(t, inventory.StatusReserved, inv.Status("vase-1"))
}

func TestHandler_AddToCart_Errors(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		wantErr error
	}{
		{"unknown slug", "green-lamp", inventory.ErrItemNotFound},
		{"sold item", "red-bowl", cart.ErrItemUnavailable},
		{"blank slug", "  ", ErrInvalidCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, carts, inv := newTestHandler(t)
			c := openCart(t, carts)

			err := handler.AddToCart(context.Background(), c, AddToCart{ItemSlug: tt.slug})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, c.IsEmpty())
			assert.Empty(t, inv.ReserveCalls)
		})
	}
}

func TestHandler_AddToCart_AlreadyInCart(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()

	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))

	assert.Equal(t, 1, c.Count())
	assert.Len(t, inv.ReserveCalls, 1)
}

func TestHandler_RemoveFromCart(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))

	require.NoError(t, handler.RemoveFromCart(ctx, c, RemoveFromCart{ItemSlug: "blue-vase"}))

	assert.True(t, c.IsEmpty())
	assert.Equal(t, inventory.StatusAvailable, inv.Status("vase-1"))
}

func TestHandler_CartLockedWhileOrderUnpaid(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))
	_, err := handler.PlaceOrder(ctx, c, PlaceOrder{Contact: testContact()})
	require.NoError(t, err)

	err = handler.RemoveFromCart(ctx, c, RemoveFromCart{ItemSlug: "blue-vase"})
	assert.ErrorIs(t, err, order.ErrCheckoutPending)
	err = handler.AddToCart(ctx, c, AddToCart{ItemSlug: "tea-cup"})
	assert.ErrorIs(t, err, order.ErrCheckoutPending)

	assert.Equal(t, []string{"vase-1"}, c.ItemIDs())
	assert.Equal(t, inventory.StatusReserved, inv.Status("vase-1"))
	assert.Equal(t, inventory.StatusAvailable, inv.Status("cup-1"))

	// once the order is gone the cart is editable again
	_, err = handler.PayOrder(ctx, c, PayOrder{PaymentToken: "decline"})
	require.ErrorIs(t, err, order.ErrPaymentDeclined)
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "tea-cup"}))
	assert.True(t, c.Contains("cup-1"))
}

func TestHandler_ClearCart_CancelsUnpaidOrder(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))
	o, err := handler.PlaceOrder(ctx, c, PlaceOrder{Contact: testContact()})
	require.NoError(t, err)

	require.NoError(t, handler.ClearCart(ctx, c))

	assert.True(t, c.IsEmpty())
	assert.Equal(t, inventory.StatusAvailable, inv.Status("vase-1"))
	_, err = handler.PayOrder(ctx, c, PayOrder{PaymentToken: "cnon:card-ok"})
	assert.ErrorIs(t, err, order.ErrEmptyCart)

	canceled, err := handler.orders.ResolveByToken(ctx, mustToken(t, handler, o))
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, canceled.Status)
}

func mustToken(t *testing.T, handler *Handler, o *order.Order) string {
	t.Helper()
	token, err := handler.orders.Token(o)
	require.NoError(t, err)
	return token
}

// ============================================
// Order Command Tests
// ============================================

func TestHandler_PlaceAndPayOrder(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))

	o, err := handler.PlaceOrder(ctx, c, PlaceOrder{Contact: testContact()})
	require.NoError(t, err)
	assert.Equal(t, order.StatusUnpaid, o.Status)

	paid, err := handler.PayOrder(ctx, c, PayOrder{PaymentToken: " cnon:card-ok "})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
	assert.Equal(t, inventory.StatusSold, inv.Status("vase-1"))

	shipped, err := handler.RecordShipment(ctx, RecordShipment{Number: o.Number, Carrier: "UPS", TrackingNumber: "1Z"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, shipped.Status)
}

func TestHandler_PayOrder_Declined(t *testing.T) {
	handler, carts, inv := newTestHandler(t)
	c := openCart(t, carts)
	ctx := context.Background()
	require.NoError(t, handler.AddToCart(ctx, c, AddToCart{ItemSlug: "blue-vase"}))
	_, err := handler.PlaceOrder(ctx, c, PlaceOrder{Contact: testContact()})
	require.NoError(t, err)

	o, err := handler.PayOrder(ctx, c, PayOrder{PaymentToken: "decline"})
	assert.ErrorIs(t, err, order.ErrPaymentDeclined)
	require.NotNil(t, o)
	assert.Equal(t, order.StatusCanceled, o.Status)
	assert.Equal(t, inventory.StatusAvailable, inv.Status("vase-1"))
}

func TestHandler_RecordShipment_Validation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	_, err := handler.RecordShipment(context.Background(), RecordShipment{Number: "1234-5678-9012", Carrier: "UPS"})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
