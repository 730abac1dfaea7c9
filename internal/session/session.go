package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Keys stored under each session.
const (
	KeyCart     = "cart"
	KeyCheckout = "checkout"
	KeyActivity = "last_activity"
)

const (
	kindCart     = "cart"
	kindCheckout = "checkout"
	version      = 1
)

// Store is a per-visitor key/value store with a sliding expiry.
//
// Set refreshes the session's expiry. Expired lists sessions whose expiry has
// passed but whose data has not been destroyed yet, so the sweeper can still
// release what they hold. Exists reports whether any data is left for sid.
type Store interface {
	Get(ctx context.Context, sid, key string) ([]byte, bool, error)
	Set(ctx context.Context, sid, key string, value []byte) error
	Delete(ctx context.Context, sid, key string) error
	Expired(ctx context.Context, now time.Time, limit int) ([]string, error)
	Destroy(ctx context.Context, sid string) error
	Exists(ctx context.Context, sid string) (bool, error)
}

// CartLine is one reserved item and the price captured when it was reserved.
type CartLine struct {
	ItemID string          `json:"id"`
	Price  decimal.Decimal `json:"price"`
}

// CartRecord is the persisted form of a cart.
type CartRecord struct {
	Kind    string     `json:"kind"`
	Version int        `json:"v"`
	Items   []CartLine `json:"items"`
}

// CheckoutState mirrors the in-flight order so requests can check it without a
// database round trip. Status holds the order status code.
type CheckoutState struct {
	Kind       string    `json:"kind"`
	Version    int       `json:"v"`
	Number     string    `json:"number"`
	Status     int       `json:"status"`
	LastActive time.Time `json:"last_active"`
}

func EncodeCart(items []CartLine) ([]byte, error) {
	return json.Marshal(CartRecord{Kind: kindCart, Version: version, Items: items})
}

// DecodeCart parses a stored cart. Unparseable or foreign records yield an
// empty record and ok=false.
func DecodeCart(data []byte) (CartRecord, bool) {
	var rec CartRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return CartRecord{}, false
	}
	if rec.Kind != kindCart || rec.Version != version {
		return CartRecord{}, false
	}
	for _, line := range rec.Items {
		if line.ItemID == "" {
			return CartRecord{}, false
		}
	}
	return rec, true
}

func EncodeCheckout(number string, status int, lastActive time.Time) ([]byte, error) {
	return json.Marshal(CheckoutState{
		Kind:       kindCheckout,
		Version:    version,
		Number:     number,
		Status:     status,
		LastActive: lastActive.UTC(),
	})
}

// DecodeCheckout parses a stored checkout state; see DecodeCart.
func DecodeCheckout(data []byte) (CheckoutState, bool) {
	var st CheckoutState
	if err := json.Unmarshal(data, &st); err != nil {
		return CheckoutState{}, false
	}
	if st.Kind != kindCheckout || st.Version != version || st.Number == "" {
		return CheckoutState{}, false
	}
	return st, true
}

func EncodeActivity(t time.Time) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano))
}

func DecodeActivity(data []byte) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
