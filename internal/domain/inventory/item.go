package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item")
)

// Status is the availability flag of a unique item.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// Item is a one-of-a-kind listing. It can be held by at most one cart at a time.
type Item struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Status   Status          `json:"status"`
}

func (i *Item) Available() bool { return i.Status == StatusAvailable }

// Validate checks the fields a listing needs before it can be stocked.
func (i *Item) Validate() error {
	switch {
	case i.ID == "":
		return errors.Join(ErrInvalidItem, errors.New("id is required"))
	case i.Slug == "":
		return errors.Join(ErrInvalidItem, errors.New("slug is required"))
	case i.Price.IsNegative():
		return errors.Join(ErrInvalidItem, errors.New("price must not be negative"))
	case len(i.Currency) != 3:
		return errors.Join(ErrInvalidItem, errors.New("currency must be an ISO 4217 code"))
	}
	return nil
}

// Repository is the durable store of unique items.
//
// Reserve must be an atomic conditional flip: it succeeds only when the item is
// currently available, so two concurrent callers can never both win. Release
// only touches reserved items, which makes it safe to retry and leaves sold
// items alone.
type Repository interface {
	Get(ctx context.Context, id string) (*Item, error)
	GetBySlug(ctx context.Context, slug string) (*Item, error)
	Reserve(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	MarkSold(ctx context.Context, ids []string) error
}
