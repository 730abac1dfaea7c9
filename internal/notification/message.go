package notification

import "time"

// Template names a notification kind; email templates use the same names.
type Template string

const (
	TemplateOrderReceipt     Template = "order_receipt"
	TemplateAdminOrderAlert  Template = "admin_order_alert"
	TemplateShipmentTracking Template = "shipment_tracking"
)

// Message is one notification to one recipient. It is also the Kafka payload.
type Message struct {
	ID        string       `json:"id"`
	Template  Template     `json:"template"`
	Recipient string       `json:"recipient"`
	Order     OrderContext `json:"order"`
	CreatedAt time.Time    `json:"created_at"`
}

// OrderContext is the order data a template renders. Amounts are preformatted.
type OrderContext struct {
	Number         string `json:"number"`
	CustomerName   string `json:"customer_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address"`
	Currency       string `json:"currency"`
	Total          string `json:"total"`
	Items          []Line `json:"items"`
	StatusURL      string `json:"status_url,omitempty"`
	ReceiptURL     string `json:"receipt_url,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

type Line struct {
	Title string `json:"title"`
	Price string `json:"price"`
}
