package command

import "github.com/example/unique-shop/internal/domain/order"

// Cart Commands
type AddToCart struct {
	ItemSlug string `json:"item_slug"`
}

type RemoveFromCart struct {
	ItemSlug string `json:"item_slug"`
}

// Order Commands
type PlaceOrder struct {
	order.Contact
}

type UpdateOrder struct {
	order.Contact
}

type PayOrder struct {
	PaymentToken string `json:"payment_token"`
}

// Admin Commands
type RecordShipment struct {
	Number         string `json:"-"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}
