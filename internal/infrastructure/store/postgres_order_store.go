package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/unique-shop/internal/domain/order"
)

// PostgresOrderStore persists orders with their items, payment and shipment.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Create(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c := o.Contact
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (number, first_name, last_name, email, phone, street_address, city, state, zip_code,
		                     status, currency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.Number, c.FirstName, c.LastName, c.Email, c.Phone, c.StreetAddress, c.City, c.State, c.ZipCode,
		int(o.Status), o.Currency, o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err, "orders_pkey") {
		return order.ErrDuplicateNumber
	}
	if err != nil {
		return err
	}

	for i, item := range o.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_number, position, item_id, title, price) VALUES ($1, $2, $3, $4, $5)`,
			o.Number, i, item.ItemID, item.Title, item.Price,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresOrderStore) Get(ctx context.Context, number string) (*order.Order, error) {
	var o order.Order
	var status int
	c := &o.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT number, first_name, last_name, email, phone, street_address, city, state, zip_code,
		        status, currency, cancel_reason, created_at, updated_at
		 FROM orders WHERE number = $1`,
		number,
	).Scan(&o.Number, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.StreetAddress, &c.City, &c.State, &c.ZipCode,
		&status, &o.Currency, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, title, price FROM order_items WHERE order_number = $1 ORDER BY position ASC`,
		number,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var p order.Payment
	err = s.db.QueryRowContext(ctx,
		`SELECT payment_id, gateway_order_id, receipt_number, receipt_url, status, idempotency_key, created_at
		 FROM payments WHERE order_number = $1`,
		number,
	).Scan(&p.PaymentID, &p.GatewayOrderID, &p.ReceiptNumber, &p.ReceiptURL, &p.Status, &p.IdempotencyKey, &p.CreatedAt)
	switch {
	case err == nil:
		o.Payment = &p
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	var sh order.Shipment
	err = s.db.QueryRowContext(ctx,
		`SELECT carrier, tracking_number, created_at FROM shipments WHERE order_number = $1`,
		number,
	).Scan(&sh.Carrier, &sh.TrackingNumber, &sh.CreatedAt)
	switch {
	case err == nil:
		o.Shipment = &sh
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	return &o, nil
}

func (s *PostgresOrderStore) UpdateContact(ctx context.Context, number string, c order.Contact) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET first_name = $2, last_name = $3, email = $4, phone = $5, street_address = $6,
		                   city = $7, state = $8, zip_code = $9, updated_at = now()
		 WHERE number = $1 AND status = $10`,
		number, c.FirstName, c.LastName, c.Email, c.Phone, c.StreetAddress, c.City, c.State, c.ZipCode,
		int(order.StatusUnpaid),
	)
	return s.checkApplied(ctx, s.db, res, err, number)
}

func (s *PostgresOrderStore) SetStatus(ctx context.Context, number string, from, to order.Status, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $3, cancel_reason = $4, updated_at = now() WHERE number = $1 AND status = $2`,
		number, int(from), int(to), reason,
	)
	return s.checkApplied(ctx, s.db, res, err, number)
}

func (s *PostgresOrderStore) RecordPayment(ctx context.Context, number string, p order.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE number = $1 AND status = $2`,
		number, int(order.StatusUnpaid), int(order.StatusPaid), p.CreatedAt,
	)
	if err := s.checkApplied(ctx, tx, res, err, number); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (order_number, payment_id, gateway_order_id, receipt_number, receipt_url, status,
		                       idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		number, p.PaymentID, p.GatewayOrderID, p.ReceiptNumber, p.ReceiptURL, p.Status, p.IdempotencyKey, p.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresOrderStore) RecordShipment(ctx context.Context, number string, sh order.Shipment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE number = $1 AND status = $2`,
		number, int(order.StatusPaid), int(order.StatusShipped), sh.CreatedAt,
	)
	if err := s.checkApplied(ctx, tx, res, err, number); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shipments (order_number, carrier, tracking_number, created_at) VALUES ($1, $2, $3, $4)`,
		number, sh.Carrier, sh.TrackingNumber, sh.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkApplied turns a conditional UPDATE that matched no row into
// ErrOrderNotFound or ErrStatusConflict.
func (s *PostgresOrderStore) checkApplied(ctx context.Context, q queryer, res sql.Result, err error, number string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE number = $1)`, number).Scan(&exists); err != nil {
		return fmt.Errorf("check order %s: %w", number, err)
	}
	if !exists {
		return order.ErrOrderNotFound
	}
	return order.ErrStatusConflict
}
