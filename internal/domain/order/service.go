package order

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/notification"
	"github.com/example/unique-shop/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultNumberAttempts = 10

// Config carries the orchestrator settings.
type Config struct {
	// AdminEmail receives the new order alert; empty disables it.
	AdminEmail string
	// StatusURL is the public prefix the signed token is appended to.
	StatusURL string
	// NumberAttempts bounds regeneration after number collisions.
	NumberAttempts int
	Now            func() time.Time
	Random         io.Reader
}

type Dependencies struct {
	Orders   Repository
	Carts    *cart.Service
	Sessions session.Store
	Gateway  PaymentGateway
	Tokens   TokenSigner
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Service walks an order from the cart through payment.
type Service struct {
	orders   Repository
	carts    *cart.Service
	sessions session.Store
	gateway  PaymentGateway
	tokens   TokenSigner
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}
	if cfg.NumberAttempts <= 0 {
		cfg.NumberAttempts = defaultNumberAttempts
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:   deps.Orders,
		carts:    deps.Carts,
		sessions: deps.Sessions,
		gateway:  deps.Gateway,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		logger:   logger.With(zap.String("component", "order")),
		metrics:  deps.Metrics,
		cfg:      cfg,
	}
}

// Create turns the cart into an unpaid order. The items stay reserved by the
// cart; nothing is re-reserved. A pending order from an earlier submission is
// superseded without touching inventory since the cart carries over.
func (s *Service) Create(ctx context.Context, c *cart.Cart, contact Contact) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	contact = contact.Normalize()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	if err := s.supersede(ctx, c.SessionID); err != nil {
		return nil, err
	}

	now := s.cfg.Now().UTC()
	o := &Order{
		Contact:   contact,
		Status:    StatusUnpaid,
		Currency:  c.Currency(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, line := range c.Items() {
		o.Items = append(o.Items, Item{ItemID: line.ItemID, Title: line.Title, Price: line.Price})
	}

	var err error
	for attempt := 0; attempt < s.cfg.NumberAttempts; attempt++ {
		if o.Number, err = GenerateNumber(s.cfg.Random); err != nil {
			return nil, err
		}
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, ErrDuplicateNumber) {
			break
		}
		s.logger.Warn("order_number_collision", zap.String("number", o.Number))
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.saveCheckout(ctx, c.SessionID, o); err != nil {
		return nil, err
	}

	s.metrics.Checkout("created")
	s.logger.Info("order_created",
		zap.String("number", o.Number),
		zap.String("session_id", c.SessionID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total().StringFixed(2)),
	)
	return o, nil
}

// Update replaces the contact details of the pending order.
func (s *Service) Update(ctx context.Context, c *cart.Cart, contact Contact) (*Order, error) {
	o, err := s.Review(ctx, c)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusUnpaid {
		return nil, o.transitionError(StatusUnpaid)
	}
	contact = contact.Normalize()
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateContact(ctx, o.Number, contact); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	o.Contact = contact
	o.UpdatedAt = s.cfg.Now().UTC()
	if err := s.saveCheckout(ctx, c.SessionID, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Review returns the order the session is checking out.
func (s *Service) Review(ctx context.Context, c *cart.Cart) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	st, ok, err := s.CheckoutState(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoActiveOrder
	}
	o, err := s.orders.Get(ctx, st.Number)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrNoActiveOrder
	}
	return o, err
}

// Charge attempts payment for the pending order. Order items the cart no longer
// holds are reserved again first; if one is gone the order is canceled without
// charging. On success the order's items are sold, anything else in the cart is
// released and the cart and checkout state are dropped. On any
// gateway failure, or a missing token, the order is canceled and its items are
// released; the returned error wraps ErrPaymentDeclined.
func (s *Service) Charge(ctx context.Context, c *cart.Cart, paymentToken string) (*Order, error) {
	o, err := s.Review(ctx, c)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusPaid) {
		return nil, o.transitionError(StatusPaid)
	}

	if paymentToken == "" {
		return o, s.decline(ctx, c, o, errors.New("missing payment token"))
	}

	if err := s.carts.Hold(ctx, c, o.ItemIDs()); err != nil {
		if !errors.Is(err, cart.ErrItemUnavailable) && !errors.Is(err, inventory.ErrItemNotFound) {
			return nil, fmt.Errorf("hold order items: %w", err)
		}
		s.logger.Warn("order_items_lost", zap.String("number", o.Number), zap.Error(err))
		if cancelErr := s.cancel(ctx, c, o, "items no longer available"); cancelErr != nil {
			return o, errors.Join(err, cancelErr)
		}
		return o, err
	}

	currency, amount := o.Units()
	req := ChargeRequest{
		OrderNumber:    o.Number,
		AmountMinor:    amount,
		Currency:       currency,
		SourceToken:    paymentToken,
		IdempotencyKey: uuid.NewString(),
		BuyerEmail:     o.Contact.Email,
	}
	res, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return o, s.decline(ctx, c, o, err)
	}

	payment := Payment{
		PaymentID:      res.PaymentID,
		GatewayOrderID: res.GatewayOrderID,
		ReceiptNumber:  res.ReceiptNumber,
		ReceiptURL:     res.ReceiptURL,
		Status:         res.Status,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.cfg.Now().UTC(),
	}
	if err := s.orders.RecordPayment(ctx, o.Number, payment); err != nil {
		// The card was charged; leave the order and cart for manual reconciliation.
		s.logger.Error("payment_record_failed",
			zap.String("number", o.Number),
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record payment: %w", err)
	}
	o.Status = StatusPaid
	o.Payment = &payment
	o.UpdatedAt = payment.CreatedAt

	if err := s.carts.Finalize(ctx, c, o.ItemIDs()); err != nil {
		// The cart record is gone either way; items left reserved need reconciling by hand.
		s.logger.Error("items_mark_sold_failed",
			zap.String("number", o.Number),
			zap.Strings("item_ids", o.ItemIDs()),
			zap.Error(err),
		)
	}
	if err := s.sessions.Delete(ctx, c.SessionID, session.KeyCheckout); err != nil {
		s.logger.Error("checkout_state_delete_failed", zap.String("number", o.Number), zap.Error(err))
	}

	s.metrics.Checkout("paid")
	s.logger.Info("order_paid",
		zap.String("number", o.Number),
		zap.String("payment_id", payment.PaymentID),
		zap.Int64("amount_minor", amount),
		zap.String("currency", currency),
	)

	s.notify(notification.TemplateOrderReceipt, o.Contact.Email, o)
	if s.cfg.AdminEmail != "" {
		s.notify(notification.TemplateAdminOrderAlert, s.cfg.AdminEmail, o)
	}
	return o, nil
}

// Cancel is the customer abandoning checkout: the order is soft deleted and the
// cart is cleared.
func (s *Service) Cancel(ctx context.Context, c *cart.Cart) (*Order, error) {
	o, err := s.Review(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, c, o, "canceled by customer"); err != nil {
		return o, err
	}
	s.metrics.Checkout("canceled")
	return o, nil
}

// Abandon releases whatever the session holds. A pending order is canceled
// with reason; otherwise the cart is cleared. It reports whether an order was
// canceled.
func (s *Service) Abandon(ctx context.Context, c *cart.Cart, reason string) (bool, error) {
	st, ok, err := s.CheckoutState(ctx, c.SessionID)
	if err != nil {
		return false, err
	}
	if ok && Status(st.Status) == StatusUnpaid {
		o, err := s.orders.Get(ctx, st.Number)
		switch {
		case err == nil && o.Status == StatusUnpaid:
			if err := s.cancel(ctx, c, o, reason); err != nil {
				return false, err
			}
			s.metrics.Checkout("expired")
			return true, nil
		case err != nil && !errors.Is(err, ErrOrderNotFound):
			return false, err
		}
	}
	if ok {
		if err := s.sessions.Delete(ctx, c.SessionID, session.KeyCheckout); err != nil {
			return false, fmt.Errorf("delete checkout state: %w", err)
		}
	}
	return false, s.carts.Clear(ctx, c)
}

// EnsureCartEditable returns ErrCheckoutPending while the session has an
// unpaid order, whose lines must keep matching the cart. A checkout state left
// behind by an order that has since moved on is dropped.
func (s *Service) EnsureCartEditable(ctx context.Context, sessionID string) error {
	st, ok, err := s.CheckoutState(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	if Status(st.Status) == StatusUnpaid {
		o, err := s.orders.Get(ctx, st.Number)
		switch {
		case err == nil && o.Status == StatusUnpaid:
			return ErrCheckoutPending
		case err != nil && !errors.Is(err, ErrOrderNotFound):
			return err
		}
	}
	if err := s.sessions.Delete(ctx, sessionID, session.KeyCheckout); err != nil {
		return fmt.Errorf("delete checkout state: %w", err)
	}
	return nil
}

// ResolveByToken finds the order a signed status token refers to.
func (s *Service) ResolveByToken(ctx context.Context, token string) (*Order, error) {
	number, err := s.tokens.ParseOrderNumber(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.orders.Get(ctx, number)
}

// Token signs the order number for use in public URLs.
func (s *Service) Token(o *Order) (string, error) {
	return s.tokens.SignOrderNumber(o.Number)
}

// RecordShipment stores the shipment, marks the order shipped and sends the
// customer the tracking details.
func (s *Service) RecordShipment(ctx context.Context, number, carrier, tracking string) (*Order, error) {
	o, err := s.orders.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusShipped) {
		return nil, o.transitionError(StatusShipped)
	}

	sh := Shipment{Carrier: carrier, TrackingNumber: tracking, CreatedAt: s.cfg.Now().UTC()}
	if err := s.orders.RecordShipment(ctx, number, sh); err != nil {
		return nil, fmt.Errorf("record shipment: %w", err)
	}
	o.Status = StatusShipped
	o.Shipment = &sh
	o.UpdatedAt = sh.CreatedAt

	s.metrics.Checkout("shipped")
	s.logger.Info("order_shipped", zap.String("number", number), zap.String("tracking", tracking))
	s.notify(notification.TemplateShipmentTracking, o.Contact.Email, o)
	return o, nil
}

// CheckoutState reads the session's mirror of its in-flight order.
// A corrupt record is reported as absent.
func (s *Service) CheckoutState(ctx context.Context, sessionID string) (session.CheckoutState, bool, error) {
	data, found, err := s.sessions.Get(ctx, sessionID, session.KeyCheckout)
	if err != nil {
		return session.CheckoutState{}, false, fmt.Errorf("load checkout state: %w", err)
	}
	if !found {
		return session.CheckoutState{}, false, nil
	}
	st, ok := session.DecodeCheckout(data)
	if !ok {
		s.logger.Warn("checkout_record_corrupt", zap.String("session_id", sessionID))
		return session.CheckoutState{}, false, nil
	}
	return st, true, nil
}

func (s *Service) supersede(ctx context.Context, sessionID string) error {
	st, ok, err := s.CheckoutState(ctx, sessionID)
	if err != nil || !ok || Status(st.Status) != StatusUnpaid {
		return err
	}
	err = s.orders.SetStatus(ctx, st.Number, StatusUnpaid, StatusCanceled, "superseded")
	switch {
	case err == nil:
		s.logger.Info("order_superseded", zap.String("number", st.Number))
		return nil
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrStatusConflict):
		return nil
	default:
		return fmt.Errorf("supersede order %s: %w", st.Number, err)
	}
}

func (s *Service) decline(ctx context.Context, c *cart.Cart, o *Order, cause error) error {
	s.logger.Warn("payment_declined", zap.String("number", o.Number), zap.Error(cause))
	s.metrics.Checkout("declined")
	if err := s.cancel(ctx, c, o, "payment declined"); err != nil {
		return errors.Join(fmt.Errorf("%w: %v", ErrPaymentDeclined, cause), err)
	}
	return fmt.Errorf("%w: %v", ErrPaymentDeclined, cause)
}

// cancel soft deletes o, releases the cart and drops the checkout state.
func (s *Service) cancel(ctx context.Context, c *cart.Cart, o *Order, reason string) error {
	if !o.CanTransitionTo(StatusCanceled) {
		return o.transitionError(StatusCanceled)
	}
	if err := s.orders.SetStatus(ctx, o.Number, o.Status, StatusCanceled, reason); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	o.Status = StatusCanceled
	o.CancelReason = reason
	o.UpdatedAt = s.cfg.Now().UTC()

	var errs []error
	if err := s.carts.Clear(ctx, c); err != nil {
		errs = append(errs, fmt.Errorf("release items: %w", err))
	}
	if err := s.sessions.Delete(ctx, c.SessionID, session.KeyCheckout); err != nil {
		errs = append(errs, fmt.Errorf("delete checkout state: %w", err))
	}
	s.logger.Info("order_canceled", zap.String("number", o.Number), zap.String("reason", reason))
	return errors.Join(errs...)
}

func (s *Service) saveCheckout(ctx context.Context, sessionID string, o *Order) error {
	data, err := session.EncodeCheckout(o.Number, int(o.Status), s.cfg.Now())
	if err != nil {
		return fmt.Errorf("encode checkout state: %w", err)
	}
	if err := s.sessions.Set(ctx, sessionID, session.KeyCheckout, data); err != nil {
		return fmt.Errorf("save checkout state: %w", err)
	}
	return nil
}

func (s *Service) notify(tmpl notification.Template, recipient string, o *Order) {
	if s.notifier == nil || recipient == "" {
		return
	}
	msg := notification.Message{
		ID:        uuid.NewString(),
		Template:  tmpl,
		Recipient: recipient,
		Order:     s.orderContext(o),
		CreatedAt: s.cfg.Now().UTC(),
	}
	s.notifier.Dispatch(msg)
}

func (s *Service) orderContext(o *Order) notification.OrderContext {
	oc := notification.OrderContext{
		Number:       o.Number,
		CustomerName: o.Contact.Name(),
		Email:        o.Contact.Email,
		Phone:        o.Contact.Phone,
		Address:      o.Contact.Address(),
		Currency:     o.Currency,
		Total:        o.Total().StringFixed(2),
	}
	for _, item := range o.Items {
		oc.Items = append(oc.Items, notification.Line{Title: item.Title, Price: item.Price.StringFixed(2)})
	}
	if token, err := s.Token(o); err == nil && s.cfg.StatusURL != "" {
		oc.StatusURL = s.cfg.StatusURL + token
	}
	if o.Payment != nil {
		oc.ReceiptURL = o.Payment.ReceiptURL
	}
	if o.Shipment != nil {
		oc.Carrier = o.Shipment.Carrier
		oc.TrackingNumber = o.Shipment.TrackingNumber
	}
	return oc
}
