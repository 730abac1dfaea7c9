package order

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status codes are persisted, so their values must not change.
type Status int

const (
	StatusCanceled Status = 0
	StatusUnpaid   Status = 1
	StatusPaid     Status = 2
	StatusShipped  Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusCanceled:
		return "canceled"
	case StatusUnpaid:
		return "unpaid"
	case StatusPaid:
		return "paid"
	case StatusShipped:
		return "shipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrNoActiveOrder    = errors.New("no order in progress")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidContact   = errors.New("invalid contact details")
	ErrInvalidStatus    = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrOrderNotPaid     = errors.New("order must be paid before shipping")
	ErrOrderShipped     = errors.New("order has already shipped")
	ErrOrderCanceled    = errors.New("order is canceled")
	ErrPaymentDeclined  = errors.New("payment declined")
	ErrInvalidToken     = errors.New("invalid order token")
	ErrDuplicateNumber  = errors.New("order number already exists")
	ErrStatusConflict   = errors.New("order status changed concurrently")
	ErrCheckoutPending  = errors.New("cart is locked by an unpaid order")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusUnpaid:   {StatusPaid, StatusCanceled},
	StatusPaid:     {StatusShipped},
	StatusShipped:  {}, // terminal state
	StatusCanceled: {}, // terminal state
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCanceled:
		return ErrOrderCanceled
	case o.Status == StatusShipped:
		return ErrOrderShipped
	case o.Status == StatusPaid && (target == StatusPaid || target == StatusCanceled):
		return ErrOrderAlreadyPaid
	case o.Status == StatusUnpaid && target == StatusShipped:
		return ErrOrderNotPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// Contact holds the customer and shipping fields of the checkout form.
type Contact struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
}

var (
	stateCode = regexp.MustCompile(`^[A-Z]{2}$`)
	zipCode   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// Normalize trims whitespace and upper-cases the state code.
func (c Contact) Normalize() Contact {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.StreetAddress = strings.TrimSpace(c.StreetAddress)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	c.ZipCode = strings.TrimSpace(c.ZipCode)
	return c
}

// Validate reports every missing or malformed field at once.
func (c Contact) Validate() error {
	var problems []string
	required := []struct{ field, value string }{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"email", c.Email},
		{"street_address", c.StreetAddress},
		{"city", c.City},
		{"state", c.State},
		{"zip_code", c.ZipCode},
	}
	for _, r := range required {
		if r.value == "" {
			problems = append(problems, r.field+" is required")
		}
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			problems = append(problems, "email is not a valid address")
		}
	}
	if c.State != "" && !stateCode.MatchString(c.State) {
		problems = append(problems, "state must be a two letter code")
	}
	if c.ZipCode != "" && !zipCode.MatchString(c.ZipCode) {
		problems = append(problems, "zip_code must be 12345 or 12345-6789")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContact, strings.Join(problems, "; "))
	}
	return nil
}

func (c Contact) Name() string {
	return c.FirstName + " " + c.LastName
}

func (c Contact) Address() string {
	return fmt.Sprintf("%s, %s, %s, %s", c.StreetAddress, c.City, c.State, c.ZipCode)
}

// Item is an order line, copied from the cart when the order is created.
type Item struct {
	ItemID string          `json:"item_id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}

// Payment is the gateway's record of a successful charge.
type Payment struct {
	PaymentID      string    `json:"payment_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	ReceiptNumber  string    `json:"receipt_number"`
	ReceiptURL     string    `json:"receipt_url"`
	Status         string    `json:"status"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

type Shipment struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	CreatedAt      time.Time `json:"created_at"`
}

type Order struct {
	Number       string    `json:"number"`
	Contact      Contact   `json:"contact"`
	Status       Status    `json:"status"`
	Items        []Item    `json:"items"`
	Currency     string    `json:"currency"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Payment      *Payment  `json:"payment,omitempty"`
	Shipment     *Shipment `json:"shipment,omitempty"`
}

func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price)
	}
	return total
}

// Units returns the currency and the total in minor units (cents).
func (o *Order) Units() (string, int64) {
	return o.Currency, o.Total().Round(2).Shift(2).IntPart()
}

func (o *Order) ItemIDs() []string {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ItemID
	}
	return ids
}
