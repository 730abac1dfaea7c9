package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/domain/order"
)

// ErrInvalidCommand marks a request missing a required field.
var ErrInvalidCommand = errors.New("invalid command")

type Handler struct {
	items  inventory.Repository
	carts  *cart.Service
	orders *order.Service
}

func NewHandler(items inventory.Repository, carts *cart.Service, orders *order.Service) *Handler {
	return &Handler{
		items:  items,
		carts:  carts,
		orders: orders,
	}
}

// AddToCart reserves the item named by slug for c. The cart cannot change
// while an unpaid order was placed from it.
func (h *Handler) AddToCart(ctx context.Context, c *cart.Cart, cmd AddToCart) error {
	if err := h.orders.EnsureCartEditable(ctx, c.SessionID); err != nil {
		return err
	}
	item, err := h.lookup(ctx, cmd.ItemSlug)
	if err != nil {
		return err
	}
	if c.Contains(item.ID) {
		return nil
	}
	if !item.Available() {
		return cart.ErrItemUnavailable
	}
	return h.carts.Add(ctx, c, item)
}

// RemoveFromCart releases the item named by slug
func (h *Handler) RemoveFromCart(ctx context.Context, c *cart.Cart, cmd RemoveFromCart) error {
	if err := h.orders.EnsureCartEditable(ctx, c.SessionID); err != nil {
		return err
	}
	item, err := h.lookup(ctx, cmd.ItemSlug)
	if err != nil {
		return err
	}
	return h.carts.Remove(ctx, c, item.ID)
}

// ClearCart releases every item in c, canceling the unpaid order placed from it
func (h *Handler) ClearCart(ctx context.Context, c *cart.Cart) error {
	_, err := h.orders.Abandon(ctx, c, "cart cleared by customer")
	return err
}

// PlaceOrder turns the cart into an unpaid order
func (h *Handler) PlaceOrder(ctx context.Context, c *cart.Cart, cmd PlaceOrder) (*order.Order, error) {
	return h.orders.Create(ctx, c, cmd.Contact)
}

// UpdateOrder changes the contact details of the pending order
func (h *Handler) UpdateOrder(ctx context.Context, c *cart.Cart, cmd UpdateOrder) (*order.Order, error) {
	return h.orders.Update(ctx, c, cmd.Contact)
}

// PayOrder charges the pending order. On a decline the returned order is
// canceled and the error wraps order.ErrPaymentDeclined.
func (h *Handler) PayOrder(ctx context.Context, c *cart.Cart, cmd PayOrder) (*order.Order, error) {
	return h.orders.Charge(ctx, c, strings.TrimSpace(cmd.PaymentToken))
}

// CancelOrder abandons checkout
func (h *Handler) CancelOrder(ctx context.Context, c *cart.Cart) (*order.Order, error) {
	return h.orders.Cancel(ctx, c)
}

// RecordShipment marks a paid order shipped
func (h *Handler) RecordShipment(ctx context.Context, cmd RecordShipment) (*order.Order, error) {
	carrier := strings.TrimSpace(cmd.Carrier)
	tracking := strings.TrimSpace(cmd.TrackingNumber)
	if carrier == "" || tracking == "" {
		return nil, fmt.Errorf("%w: carrier and tracking_number are required", ErrInvalidCommand)
	}
	return h.orders.RecordShipment(ctx, cmd.Number, carrier, tracking)
}

func (h *Handler) lookup(ctx context.Context, slug string) (*inventory.Item, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: item_slug is required", ErrInvalidCommand)
	}
	return h.items.GetBySlug(ctx, slug)
}
