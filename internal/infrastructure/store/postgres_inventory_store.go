package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/lib/pq"
)

// PostgresInventoryStore keeps unique items in the items table. Reservation is
// a conditional UPDATE, so the row lock decides which of two racing carts wins.
type PostgresInventoryStore struct {
	db *sql.DB
}

func NewPostgresInventoryStore(db *sql.DB) *PostgresInventoryStore {
	return &PostgresInventoryStore{db: db}
}

const selectItem = `SELECT id, slug, title, price, currency, status FROM items`

func (s *PostgresInventoryStore) Get(ctx context.Context, id string) (*inventory.Item, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectItem+` WHERE id = $1`, id))
}

func (s *PostgresInventoryStore) GetBySlug(ctx context.Context, slug string) (*inventory.Item, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectItem+` WHERE slug = $1`, slug))
}

func (s *PostgresInventoryStore) Reserve(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = 'reserved', updated_at = now() WHERE id = $1 AND status = 'available'`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresInventoryStore) Release(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = 'available', updated_at = now() WHERE id = $1 AND status = 'reserved'`,
		id,
	)
	return err
}

func (s *PostgresInventoryStore) MarkSold(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = 'sold', updated_at = now() WHERE id = ANY($1) AND status = 'reserved'`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return fmt.Errorf("marked %d of %d items sold", n, len(ids))
	}
	return nil
}

// Put inserts or replaces an item, used to stock the catalog.
func (s *PostgresInventoryStore) Put(ctx context.Context, item inventory.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.Status == "" {
		item.Status = inventory.StatusAvailable
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, slug, title, price, currency, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET slug = $2, title = $3, price = $4, currency = $5, status = $6, updated_at = now()`,
		item.ID, item.Slug, item.Title, item.Price, item.Currency, string(item.Status),
	)
	return err
}

func (s *PostgresInventoryStore) scanOne(row *sql.Row) (*inventory.Item, error) {
	var item inventory.Item
	var status string
	err := row.Scan(&item.ID, &item.Slug, &item.Title, &item.Price, &item.Currency, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Status = inventory.Status(status)
	return &item, nil
}
