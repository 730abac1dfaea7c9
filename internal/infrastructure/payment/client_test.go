package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/unique-shop/internal/domain/order"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chargeRequest() order.ChargeRequest {
	return order.ChargeRequest{
		OrderNumber:    "1234-5678-9012",
		AmountMinor:    15050,
		Currency:       "USD",
		SourceToken:    "cnon:card-nonce-ok",
		IdempotencyKey: "key-1",
		BuyerEmail:     "ada@example.com",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, AccessToken: "secret", LocationID: "LOC", Timeout: 2 * time.Second}, nil)
}

// ====== Charge Tests ======

func TestClient_Charge_Success(t *testing.T) {
	var got createPaymentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Square-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"payment":{"id":"pay-1","status":"COMPLETED","order_id":"gw-1",
			"receipt_number":"R1","receipt_url":"https://receipts.example/R1"}}`))
	})

	res, err := c.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "pay-1", res.PaymentID)
	assert.Equal(t, "gw-1", res.GatewayOrderID)
	assert.Equal(t, "R1", res.ReceiptNumber)
	assert.Equal(t, "COMPLETED", res.Status)

	assert.Equal(t, int64(15050), got.AmountMoney.Amount)
	assert.Equal(t, "USD", got.AmountMoney.Currency)
	assert.Equal(t, "key-1", got.IdempotencyKey)
	assert.Equal(t, "LOC", got.LocationID)
	assert.Equal(t, "1234-5678-9012", got.ReferenceID)
	assert.True(t, got.Autocomplete)
}

func TestClient_Charge_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantDecline bool
		wantCode    string
	}{
		{"card declined", http.StatusPaymentRequired, `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED","detail":"Card declined."}]}`, true, "CARD_DECLINED"},
		{"bad request without body", http.StatusBadRequest, `not json`, true, "Bad Request"},
		{"failed payment status", http.StatusOK, `{"payment":{"id":"pay-1","status":"FAILED"}}`, true, "FAILED"},
		{"server error", http.StatusBadGateway, `oops`, false, ""},
		{"rate limited", http.StatusTooManyRequests, `{}`, false, ""},
		{"empty payment", http.StatusOK, `{}`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Charge(context.Background(), chargeRequest())
			require.Error(t, err)

			var decline *DeclineError
			if tt.wantDecline {
				require.True(t, errors.As(err, &decline))
				assert.Equal(t, tt.wantCode, decline.Code)
			} else {
				assert.False(t, errors.As(err, &decline))
				assert.ErrorIs(t, err, ErrUnavailable)
			}
		})
	}
}

func TestClient_Charge_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := c.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

// ====== Circuit Breaker Tests ======

func TestClient_BreakerOpensOnOutage(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Charge(context.Background(), chargeRequest())
		require.ErrorIs(t, err, ErrUnavailable)
	}

	_, err := c.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestClient_DeclinesDoNotTripBreaker(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"errors":[{"code":"CARD_DECLINED"}]}`))
	})

	for i := 0; i < 8; i++ {
		_, err := c.Charge(context.Background(), chargeRequest())
		var decline *DeclineError
		require.True(t, errors.As(err, &decline))
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))
}

// ====== Sandbox Tests ======

func TestSandbox_Charge(t *testing.T) {
	s := NewSandbox()

	res, err := s.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.NotEmpty(t, res.PaymentID)

	for _, token := range []string{"decline", "cnon:card-declined"} {
		req := chargeRequest()
		req.SourceToken = token
		_, err := s.Charge(context.Background(), req)
		var decline *DeclineError
		assert.True(t, errors.As(err, &decline), token)
	}
}
