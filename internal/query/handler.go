package query

import (
	"context"

	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/order"
	"github.com/example/unique-shop/internal/session"
	"go.uber.org/zap"
)

// Orders is the read side of the order service.
type Orders interface {
	Review(ctx context.Context, c *cart.Cart) (*order.Order, error)
	ResolveByToken(ctx context.Context, token string) (*order.Order, error)
	Token(o *order.Order) (string, error)
}

// Handler builds the JSON views served by the storefront.
type Handler struct {
	orders    Orders
	statusURL string
	logger    *zap.Logger
}

func NewHandler(orders Orders, statusURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orders: orders, statusURL: statusURL, logger: logger}
}

// Cart
func (h *Handler) Cart(c *cart.Cart, state *session.CheckoutState, notice string) *CartView {
	view := &CartView{
		Items:    make([]ItemView, 0, c.Count()),
		Count:    c.Count(),
		Total:    c.Total().StringFixed(2),
		Currency: c.Currency(),
		Notice:   notice,
	}
	for _, line := range c.Items() {
		view.Items = append(view.Items, ItemView{
			ID:       line.ItemID,
			Slug:     line.Slug,
			Title:    line.Title,
			Price:    line.Price.StringFixed(2),
			Currency: line.Currency,
		})
	}
	if state != nil {
		view.Checkout = &CheckoutView{Number: state.Number, Status: order.Status(state.Status).String()}
	}
	return view
}

// Orders
func (h *Handler) Review(ctx context.Context, c *cart.Cart) (*OrderView, error) {
	o, err := h.orders.Review(ctx, c)
	if err != nil {
		return nil, err
	}
	return h.Order(o), nil
}

func (h *Handler) Status(ctx context.Context, token string) (*OrderView, error) {
	o, err := h.orders.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return h.Order(o), nil
}

// Order converts o into its view, including the signed status link.
func (h *Handler) Order(o *order.Order) *OrderView {
	c := o.Contact
	view := &OrderView{
		Number: o.Number,
		Status: o.Status.String(),
		Contact: ContactView{
			FirstName:     c.FirstName,
			LastName:      c.LastName,
			Email:         c.Email,
			Phone:         c.Phone,
			StreetAddress: c.StreetAddress,
			City:          c.City,
			State:         c.State,
			ZipCode:       c.ZipCode,
		},
		Items:        make([]OrderItemView, 0, len(o.Items)),
		Total:        o.Total().StringFixed(2),
		Currency:     o.Currency,
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, OrderItemView{ID: item.ItemID, Title: item.Title, Price: item.Price.StringFixed(2)})
	}
	if token, err := h.orders.Token(o); err != nil {
		h.logger.Warn("order_token_failed", zap.String("number", o.Number), zap.Error(err))
	} else {
		view.StatusURL = h.statusURL + token
	}
	if p := o.Payment; p != nil {
		view.Payment = &PaymentView{
			PaymentID:     p.PaymentID,
			ReceiptNumber: p.ReceiptNumber,
			ReceiptURL:    p.ReceiptURL,
			Status:        p.Status,
		}
	}
	if sh := o.Shipment; sh != nil {
		view.Shipment = &ShipmentView{Carrier: sh.Carrier, TrackingNumber: sh.TrackingNumber, ShippedAt: sh.CreatedAt}
	}
	return view
}
