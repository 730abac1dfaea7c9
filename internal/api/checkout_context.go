package api

import (
	"context"
	"net/http"

	"github.com/example/unique-shop/internal/api/middleware"
	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/logging"
	"github.com/example/unique-shop/internal/session"
	"go.uber.org/zap"
)

// CheckoutContext is built once per storefront request and carries everything
// the cart and checkout handlers share.
type CheckoutContext struct {
	SessionID string
	Cart      *cart.Cart
	// State is the session's in-flight order, nil when there is none.
	State *session.CheckoutState
	// Notice is a one-time message, set when this request released an expired cart.
	Notice string
}

type checkoutKey struct{}

func checkoutFrom(ctx context.Context) *CheckoutContext {
	cc, _ := ctx.Value(checkoutKey{}).(*CheckoutContext)
	return cc
}

// withCheckout opens the session cart and applies the activity timeout before
// the handler runs, so a request arriving after the timeout never acts on
// reservations that are about to be released.
func (h *Handlers) withCheckout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx, h.logger)
		sid := middleware.GetSessionID(ctx)

		c, err := h.carts.Open(ctx, sid)
		if err != nil {
			logger.Error("cart_open_failed", zap.String("session_id", sid), zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}

		cc := &CheckoutContext{SessionID: sid, Cart: c}
		notice, err := h.guard.Check(ctx, sid, c)
		if err != nil {
			logger.Warn("timeout_check_failed", zap.String("session_id", sid), zap.Error(err))
		}
		cc.Notice = notice

		st, ok, err := h.checkout.CheckoutState(ctx, sid)
		if err != nil {
			logger.Error("checkout_state_failed", zap.String("session_id", sid), zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		if ok {
			cc.State = &st
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, checkoutKey{}, cc)))
	})
}
