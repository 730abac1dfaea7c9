package query

// Re-export read models from readmodel package so handlers need one import
import "github.com/example/unique-shop/internal/readmodel"

type ItemView = readmodel.ItemView
type CartView = readmodel.CartView
type CheckoutView = readmodel.CheckoutView
type ContactView = readmodel.ContactView
type OrderItemView = readmodel.OrderItemView
type PaymentView = readmodel.PaymentView
type ShipmentView = readmodel.ShipmentView
type OrderView = readmodel.OrderView
