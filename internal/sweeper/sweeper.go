package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultBatchSize = 500

// CartOpener loads a session's cart.
type CartOpener interface {
	Open(ctx context.Context, sessionID string) (*cart.Cart, error)
}

// Sweeper releases the reservations of sessions that expired without making
// another request, then destroys them.
type Sweeper struct {
	sessions  session.Store
	carts     CartOpener
	checkout  Checkout
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics

	group singleflight.Group
}

func New(sessions session.Store, carts CartOpener, checkout Checkout, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		sessions:  sessions,
		carts:     carts,
		checkout:  checkout,
		interval:  interval,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "sweeper")),
		metrics:   m,
	}
}

// WithClock replaces the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// SweepOnce processes every expired session and returns how many were
// destroyed. Concurrent calls share one run. A session whose release fails is
// left in place for the next sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	v, err, _ := s.group.Do("sweep", func() (interface{}, error) {
		return s.sweep(ctx)
	})
	n, _ := v.(int)
	return n, err
}

func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	now := s.now()
	swept := 0
	var errs []error
	skipped := make(map[string]bool)

	for {
		ids, err := s.sessions.Expired(ctx, now, s.batchSize+len(skipped))
		if err != nil {
			return swept, fmt.Errorf("list expired sessions: %w", err)
		}

		progressed := false
		for _, sid := range ids {
			if skipped[sid] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return swept, err
			}
			if err := s.release(ctx, sid); err != nil {
				s.logger.Error("sweep_session_failed", zap.String("session_id", sid), zap.Error(err))
				errs = append(errs, err)
				skipped[sid] = true
				continue
			}
			swept++
			progressed = true
		}
		if !progressed || len(ids) < s.batchSize+len(skipped) {
			break
		}
	}

	s.metrics.Swept(swept)
	s.logger.Info("sweep_completed", zap.Int("sessions", swept), zap.Int("failed", len(skipped)))
	return swept, errors.Join(errs...)
}

func (s *Sweeper) release(ctx context.Context, sid string) error {
	exists, err := s.sessions.Exists(ctx, sid)
	if err != nil {
		return err
	}
	if !exists {
		// Data expired before any sweep reached it; whatever it reserved is
		// no longer known here.
		s.logger.Warn("session_data_missing", zap.String("session_id", sid))
		return s.sessions.Destroy(ctx, sid)
	}
	c, err := s.carts.Open(ctx, sid)
	if err != nil {
		return err
	}
	canceled, err := s.checkout.Abandon(ctx, c, "session expired")
	if err != nil {
		return err
	}
	if canceled {
		s.metrics.Timeout("order")
	}
	return s.sessions.Destroy(ctx, sid)
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("sweep_incomplete", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
