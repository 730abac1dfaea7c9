package order

import (
	"context"

	"github.com/example/unique-shop/internal/notification"
)

// Repository persists orders. Status changes are conditional on the current
// status so two requests racing on the same order cannot both apply.
type Repository interface {
	// Create returns ErrDuplicateNumber when the number is taken.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, number string) (*Order, error)
	UpdateContact(ctx context.Context, number string, contact Contact) error
	// SetStatus returns ErrStatusConflict when the order is no longer in from.
	SetStatus(ctx context.Context, number string, from, to Status, reason string) error
	// RecordPayment stores p and moves the order from unpaid to paid.
	RecordPayment(ctx context.Context, number string, p Payment) error
	// RecordShipment stores sh and moves the order from paid to shipped.
	RecordShipment(ctx context.Context, number string, sh Shipment) error
}

// ChargeRequest is one payment attempt. IdempotencyKey is unique per attempt,
// not per order, because a customer may retry after a decline.
type ChargeRequest struct {
	OrderNumber    string
	AmountMinor    int64
	Currency       string
	SourceToken    string
	IdempotencyKey string
	BuyerEmail     string
}

type ChargeResult struct {
	PaymentID      string
	GatewayOrderID string
	ReceiptNumber  string
	ReceiptURL     string
	Status         string
}

// PaymentGateway charges a card token. Any error means the charge did not happen.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// TokenSigner produces tamper-evident tokens carrying an order number.
type TokenSigner interface {
	SignOrderNumber(number string) (string, error)
	ParseOrderNumber(token string) (string, error)
}

// Notifier queues a notification without waiting for delivery.
type Notifier interface {
	Dispatch(msg notification.Message)
}
