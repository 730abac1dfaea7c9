package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/session"
	"go.uber.org/zap"
)

// ErrItemUnavailable means another cart holds the item or it has been sold.
var ErrItemUnavailable = errors.New("item is no longer available")

// Service keeps a session's cart and the inventory reservation flags consistent.
type Service struct {
	items    inventory.Repository
	sessions session.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewService(items inventory.Repository, sessions session.Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		items:    items,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "cart")),
		metrics:  m,
	}
}

// Open loads the cart persisted for sessionID. Items already in the record are
// trusted as this cart's reservations and are not re-checked for availability.
// Ids that no longer resolve are dropped and the repaired record is saved.
func (s *Service) Open(ctx context.Context, sessionID string) (*Cart, error) {
	c := newCart(sessionID)

	data, found, err := s.sessions.Get(ctx, sessionID, session.KeyCart)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !found {
		return c, nil
	}

	rec, ok := session.DecodeCart(data)
	if !ok {
		s.logger.Warn("cart_record_corrupt", zap.String("session_id", sessionID))
		if err := s.sessions.Delete(ctx, sessionID, session.KeyCart); err != nil {
			return nil, fmt.Errorf("drop corrupt cart: %w", err)
		}
		return c, nil
	}

	dirty := false
	for _, line := range rec.Items {
		item, err := s.items.Get(ctx, line.ItemID)
		if errors.Is(err, inventory.ErrItemNotFound) {
			s.logger.Warn("cart_item_missing",
				zap.String("session_id", sessionID),
				zap.String("item_id", line.ItemID),
			)
			dirty = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load cart item %s: %w", line.ItemID, err)
		}
		c.put(item, line.Price)
	}

	if dirty {
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add reserves item for the cart. Adding an item the cart already holds is a no-op.
func (s *Service) Add(ctx context.Context, c *Cart, item *inventory.Item) error {
	if c.Contains(item.ID) {
		return nil
	}

	ok, err := s.items.Reserve(ctx, item.ID)
	if err != nil {
		s.metrics.Reservation("error")
		return fmt.Errorf("reserve item %s: %w", item.ID, err)
	}
	if !ok {
		s.metrics.Reservation("unavailable")
		return ErrItemUnavailable
	}

	c.put(item, item.Price)
	if err := s.save(ctx, c); err != nil {
		c.drop(item.ID)
		if relErr := s.items.Release(ctx, item.ID); relErr != nil {
			s.logger.Error("reservation_rollback_failed",
				zap.String("item_id", item.ID),
				zap.Error(relErr),
			)
		}
		return err
	}

	s.metrics.Reservation("reserved")
	s.logger.Debug("item_reserved",
		zap.String("session_id", c.SessionID),
		zap.String("item_id", item.ID),
	)
	return nil
}

// Remove releases itemID and drops it from the cart. Unknown ids are ignored.
func (s *Service) Remove(ctx context.Context, c *Cart, itemID string) error {
	if !c.Contains(itemID) {
		return nil
	}
	if err := s.items.Release(ctx, itemID); err != nil {
		return fmt.Errorf("release item %s: %w", itemID, err)
	}
	c.drop(itemID)
	s.metrics.Release()
	return s.save(ctx, c)
}

// Clear releases every item one at a time. A failed release does not stop the
// others; the failures are returned together.
func (s *Service) Clear(ctx context.Context, c *Cart) error {
	var errs []error
	for _, id := range c.ItemIDs() {
		if err := s.Remove(ctx, c, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hold makes sure the cart reserves every id, reserving the ones it lost.
// It stops at the first item that cannot be reserved.
func (s *Service) Hold(ctx context.Context, c *Cart, ids []string) error {
	for _, id := range ids {
		if c.Contains(id) {
			continue
		}
		item, err := s.items.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load item %s: %w", id, err)
		}
		if err := s.Add(ctx, c, item); err != nil {
			return err
		}
	}
	return nil
}

// Finalize marks sold as sold and forgets the cart. Cart items outside sold
// were never paid for and are released. The cart record is dropped even when
// marking fails, so no timeout can later release a paid item.
func (s *Service) Finalize(ctx context.Context, c *Cart, sold []string) error {
	var errs []error
	if err := s.items.MarkSold(ctx, sold); err != nil {
		errs = append(errs, fmt.Errorf("mark items sold: %w", err))
	}

	paid := make(map[string]bool, len(sold))
	for _, id := range sold {
		paid[id] = true
	}
	for _, id := range c.ItemIDs() {
		if paid[id] {
			continue
		}
		if err := s.items.Release(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("release unpaid item %s: %w", id, err))
			continue
		}
		s.metrics.Release()
	}

	c.reset()
	if err := s.sessions.Delete(ctx, c.SessionID, session.KeyCart); err != nil {
		errs = append(errs, fmt.Errorf("delete cart: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	if c.IsEmpty() {
		if err := s.sessions.Delete(ctx, c.SessionID, session.KeyCart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		return nil
	}

	lines := make([]session.CartLine, 0, c.Count())
	for _, line := range c.Items() {
		lines = append(lines, session.CartLine{ItemID: line.ItemID, Price: line.Price})
	}
	data, err := session.EncodeCart(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.sessions.Set(ctx, c.SessionID, session.KeyCart, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
