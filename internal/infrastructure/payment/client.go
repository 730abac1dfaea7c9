package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/unique-shop/internal/domain/order"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const apiVersion = "2024-01-18"

// DeclineError is a charge the gateway refused for reasons tied to the card or
// request, as opposed to the gateway being unavailable.
type DeclineError struct {
	Code   string
	Detail string
}

func (e *DeclineError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}

// ErrUnavailable wraps failures that say nothing about the card.
var ErrUnavailable = errors.New("payment gateway unavailable")

type Config struct {
	BaseURL     string
	AccessToken string
	LocationID  string
	Timeout     time.Duration
}

// Client charges card nonces against a Square style payments API.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*order.ChargeResult]
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "payment"))

	breaker := gobreaker.NewCircuitBreaker[*order.ChargeResult](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var decline *DeclineError
			return err == nil || errors.As(err, &decline)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID          string `json:"source_id"`
	IdempotencyKey    string `json:"idempotency_key"`
	AmountMoney       money  `json:"amount_money"`
	LocationID        string `json:"location_id,omitempty"`
	ReferenceID       string `json:"reference_id,omitempty"`
	BuyerEmailAddress string `json:"buyer_email_address,omitempty"`
	Autocomplete      bool   `json:"autocomplete"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type createPaymentResponse struct {
	Payment *struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		OrderID       string `json:"order_id"`
		ReceiptNumber string `json:"receipt_number"`
		ReceiptURL    string `json:"receipt_url"`
	} `json:"payment"`
	Errors []apiError `json:"errors"`
}

// Charge creates a completed payment. Declines come back as *DeclineError;
// anything else wraps ErrUnavailable or the breaker's own error.
func (c *Client) Charge(ctx context.Context, req order.ChargeRequest) (*order.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.breaker.Execute(func() (*order.ChargeResult, error) {
		return c.createPayment(ctx, req)
	})
	if err != nil {
		c.logger.Warn("charge_failed",
			zap.String("number", req.OrderNumber),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		return nil, err
	}
	c.logger.Info("charge_completed",
		zap.String("number", req.OrderNumber),
		zap.String("payment_id", res.PaymentID),
	)
	return res, nil
}

func (c *Client) createPayment(ctx context.Context, req order.ChargeRequest) (*order.ChargeResult, error) {
	body, err := json.Marshal(createPaymentRequest{
		SourceID:          req.SourceToken,
		IdempotencyKey:    req.IdempotencyKey,
		AmountMoney:       money{Amount: req.AmountMinor, Currency: req.Currency},
		LocationID:        c.cfg.LocationID,
		ReferenceID:       req.OrderNumber,
		BuyerEmailAddress: req.BuyerEmail,
		Autocomplete:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("payment: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Square-Version", apiVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out createPaymentResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out)

	switch {
	case resp.StatusCode >= 400:
		return nil, declineFrom(out.Errors, resp.StatusCode)
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, decodeErr)
	case out.Payment == nil:
		return nil, fmt.Errorf("%w: empty payment in response", ErrUnavailable)
	}

	p := out.Payment
	if p.Status == "FAILED" || p.Status == "CANCELED" {
		return nil, &DeclineError{Code: p.Status}
	}
	return &order.ChargeResult{
		PaymentID:      p.ID,
		GatewayOrderID: p.OrderID,
		ReceiptNumber:  p.ReceiptNumber,
		ReceiptURL:     p.ReceiptURL,
		Status:         p.Status,
	}, nil
}

func declineFrom(errs []apiError, status int) *DeclineError {
	if len(errs) == 0 {
		return &DeclineError{Code: http.StatusText(status)}
	}
	return &DeclineError{Code: errs[0].Code, Detail: errs[0].Detail}
}
