package payment

import (
	"context"
	"fmt"

	"github.com/example/unique-shop/internal/domain/order"
	"github.com/google/uuid"
)

// Sandbox approves every charge except the well-known decline tokens. It is
// the gateway for local runs without credentials.
type Sandbox struct{}

func NewSandbox() *Sandbox { return &Sandbox{} }

func (s *Sandbox) Charge(ctx context.Context, req order.ChargeRequest) (*order.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch req.SourceToken {
	case "decline", "cnon:card-declined":
		return nil, &DeclineError{Code: "CARD_DECLINED", Detail: "Card was declined."}
	}
	id := uuid.NewString()
	return &order.ChargeResult{
		PaymentID:      id,
		GatewayOrderID: "sandbox-" + req.OrderNumber,
		ReceiptNumber:  id[:4],
		ReceiptURL:     fmt.Sprintf("https://sandbox.invalid/receipt/%s", id),
		Status:         "COMPLETED",
	}, nil
}
