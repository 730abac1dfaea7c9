package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/unique-shop/internal/command"
	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/order"
	"github.com/example/unique-shop/internal/logging"
	"github.com/example/unique-shop/internal/query"
	"github.com/example/unique-shop/internal/readmodel"
	"github.com/example/unique-shop/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Checkout is what the request context needs from the order service.
type Checkout interface {
	CheckoutState(ctx context.Context, sessionID string) (session.CheckoutState, bool, error)
}

// Guard applies the activity timeout.
type Guard interface {
	Check(ctx context.Context, sessionID string, c *cart.Cart) (string, error)
}

// Sweeper runs a manual sweep.
type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	carts        *cart.Service
	checkout     Checkout
	guard        Guard
	sweeper      Sweeper
	logger       *zap.Logger
}

type Dependencies struct {
	Commands *command.Handler
	Queries  *query.Handler
	Carts    *cart.Service
	Checkout Checkout
	Guard    Guard
	Sweeper  Sweeper
	Logger   *zap.Logger
}

func NewHandlers(deps Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   deps.Commands,
		queryHandler: deps.Queries,
		carts:        deps.Carts,
		checkout:     deps.Checkout,
		guard:        deps.Guard,
		sweeper:      deps.Sweeper,
		logger:       logger,
	}
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	cc := checkoutFrom(r.Context())
	if err := h.cmdHandler.AddToCart(r.Context(), cc.Cart, cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.RemoveFromCart
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	cc := checkoutFrom(r.Context())
	if err := h.cmdHandler.RemoveFromCart(r.Context(), cc.Cart, cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	cc := checkoutFrom(r.Context())
	if err := h.cmdHandler.ClearCart(r.Context(), cc.Cart); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// Checkout Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.cmdHandler.PlaceOrder(r.Context(), checkoutFrom(r.Context()).Cart, cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.queryHandler.Order(o))
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrder
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.cmdHandler.UpdateOrder(r.Context(), checkoutFrom(r.Context()).Cart, cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.Order(o))
}

func (h *Handlers) ReviewOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.Review(r.Context(), checkoutFrom(r.Context()).Cart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// PayOrder answers a decline with 200 and a pointer back to the payment step.
func (h *Handlers) PayOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PayOrder
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.cmdHandler.PayOrder(r.Context(), checkoutFrom(r.Context()).Cart, cmd)
	if errors.Is(err, order.ErrPaymentDeclined) {
		view := readmodel.DeclineView{Error: err.Error(), Next: "/checkout/pay"}
		if o != nil {
			view.Order = h.queryHandler.Order(o)
		}
		respondJSON(w, http.StatusOK, view)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.Order(o))
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.CancelOrder(r.Context(), checkoutFrom(r.Context()).Cart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.Order(o))
}

func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Admin Handlers

func (h *Handlers) RecordShipment(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordShipment
	if err := decode(w, r, &cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	cmd.Number = chi.URLParam(r, "number")
	o, err := h.cmdHandler.RecordShipment(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.Order(o))
}

func (h *Handlers) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.sweeper.SweepOnce(r.Context())
	view := readmodel.SweepView{Sessions: n}
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Warn("manual_sweep_incomplete", zap.Error(err))
		view.Error = err.Error()
	}
	respondJSON(w, http.StatusOK, view)
}

func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	cc := checkoutFrom(r.Context())
	state := cc.State
	if state != nil {
		// the handler may have finished or dropped the order
		st, ok, err := h.checkout.CheckoutState(r.Context(), cc.SessionID)
		if err != nil || !ok {
			state = nil
		} else {
			state = &st
		}
	}
	respondJSON(w, status, h.queryHandler.Cart(cc.Cart, state, cc.Notice))
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	logger := logging.FromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request_failed", zap.Error(err))
	} else {
		logger.Debug("request_rejected", zap.Int("status", status), zap.Error(err))
	}
	resp := ErrorResponse{Error: msg}
	if cc := checkoutFrom(r.Context()); cc != nil {
		resp.Notice = cc.Notice
	}
	respondJSON(w, status, resp)
}
