package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/session"
	"go.uber.org/zap"
)

// Notices shown once to a visitor whose reservations were released.
const (
	NoticeCartExpired  = "Your cart has expired and its items have been released."
	NoticeOrderExpired = "Your order timed out and has been canceled. The items have been released."
)

// unpaidStatus mirrors order.StatusUnpaid; the order package imports cart, so
// the code is repeated here rather than imported.
const unpaidStatus = 1

// Checkout is the part of the order service the timeout paths need.
type Checkout interface {
	CheckoutState(ctx context.Context, sessionID string) (session.CheckoutState, bool, error)
	Abandon(ctx context.Context, c *cart.Cart, reason string) (bool, error)
}

type Timeouts struct {
	Cart  time.Duration
	Order time.Duration
}

// Guard enforces the activity timeout on live requests.
type Guard struct {
	sessions session.Store
	checkout Checkout
	timeouts Timeouts
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewGuard(sessions session.Store, checkout Checkout, timeouts Timeouts, logger *zap.Logger, m *metrics.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		sessions: sessions,
		checkout: checkout,
		timeouts: timeouts,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "timeout_guard")),
		metrics:  m,
	}
}

// WithClock replaces the time source, for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Check runs before the request handler. When the session has been idle past
// the cart timeout, or holds an unpaid order idle past the order timeout, its
// reservations are released and a notice is returned. The activity stamp is
// refreshed either way.
func (g *Guard) Check(ctx context.Context, sessionID string, c *cart.Cart) (string, error) {
	now := g.now()
	notice, err := g.evaluate(ctx, sessionID, c, now)
	if err != nil {
		return "", err
	}
	if err := g.sessions.Set(ctx, sessionID, session.KeyActivity, session.EncodeActivity(now)); err != nil {
		return notice, fmt.Errorf("refresh activity: %w", err)
	}
	return notice, nil
}

func (g *Guard) evaluate(ctx context.Context, sessionID string, c *cart.Cart, now time.Time) (string, error) {
	data, found, err := g.sessions.Get(ctx, sessionID, session.KeyActivity)
	if err != nil {
		return "", fmt.Errorf("load activity: %w", err)
	}
	if !found {
		return "", nil
	}
	last, ok := session.DecodeActivity(data)
	if !ok {
		return "", nil
	}
	elapsed := now.Sub(last)

	st, pending, err := g.checkout.CheckoutState(ctx, sessionID)
	if err != nil {
		return "", err
	}
	pending = pending && st.Status == unpaidStatus

	if pending && g.timeouts.Order > 0 && elapsed > g.timeouts.Order {
		if _, err := g.checkout.Abandon(ctx, c, "order timeout"); err != nil {
			return "", fmt.Errorf("expire order: %w", err)
		}
		g.metrics.Timeout("order")
		g.logger.Info("order_timed_out",
			zap.String("session_id", sessionID),
			zap.String("number", st.Number),
			zap.Duration("idle", elapsed),
		)
		return NoticeOrderExpired, nil
	}

	if !c.IsEmpty() && g.timeouts.Cart > 0 && elapsed > g.timeouts.Cart {
		canceled, err := g.checkout.Abandon(ctx, c, "cart timeout")
		if err != nil {
			return "", fmt.Errorf("expire cart: %w", err)
		}
		g.metrics.Timeout("cart")
		g.logger.Info("cart_timed_out",
			zap.String("session_id", sessionID),
			zap.Duration("idle", elapsed),
			zap.Bool("order_canceled", canceled),
		)
		return NoticeCartExpired, nil
	}
	return "", nil
}
