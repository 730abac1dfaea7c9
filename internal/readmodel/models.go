package readmodel

import "time"

// ItemView is a line of the cart as the storefront shows it
type ItemView struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// CartView is the read model for a session's cart
type CartView struct {
	Items    []ItemView `json:"items"`
	Count    int        `json:"count"`
	Total    string     `json:"total"`
	Currency string     `json:"currency,omitempty"`
	// Notice is set once, on the request that released an expired cart.
	Notice string `json:"notice,omitempty"`
	// Checkout names the order in progress, if any.
	Checkout *CheckoutView `json:"checkout,omitempty"`
}

type CheckoutView struct {
	Number string `json:"number"`
	Status string `json:"status"`
}

type ContactView struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
}

type OrderItemView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

type PaymentView struct {
	PaymentID     string `json:"payment_id"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
	Status        string `json:"status"`
}

type ShipmentView struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// OrderView is the read model for an order
type OrderView struct {
	Number       string          `json:"number"`
	Status       string          `json:"status"`
	Contact      ContactView     `json:"contact"`
	Items        []OrderItemView `json:"items"`
	Total        string          `json:"total"`
	Currency     string          `json:"currency"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	StatusURL    string          `json:"status_url,omitempty"`
	Payment      *PaymentView    `json:"payment,omitempty"`
	Shipment     *ShipmentView   `json:"shipment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DeclineView tells the client the charge failed and where to go next.
type DeclineView struct {
	Error string     `json:"error"`
	Next  string     `json:"next"`
	Order *OrderView `json:"order,omitempty"`
}

// SweepView reports a manual sweep.
type SweepView struct {
	Sessions int    `json:"sessions"`
	Error    string `json:"error,omitempty"`
}
