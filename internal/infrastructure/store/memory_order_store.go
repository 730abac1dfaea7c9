package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/unique-shop/internal/domain/order"
)

type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]order.Order)}
}

func (s *MemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.Number]; ok {
		return order.ErrDuplicateNumber
	}
	s.orders[o.Number] = cloneOrder(*o)
	return nil
}

func (s *MemoryOrderStore) Get(ctx context.Context, number string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[number]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (s *MemoryOrderStore) UpdateContact(ctx context.Context, number string, contact order.Contact) error {
	return s.apply(number, order.StatusUnpaid, func(o *order.Order) {
		o.Contact = contact
	})
}

func (s *MemoryOrderStore) SetStatus(ctx context.Context, number string, from, to order.Status, reason string) error {
	return s.apply(number, from, func(o *order.Order) {
		o.Status = to
		o.CancelReason = reason
	})
}

func (s *MemoryOrderStore) RecordPayment(ctx context.Context, number string, p order.Payment) error {
	return s.apply(number, order.StatusUnpaid, func(o *order.Order) {
		o.Status = order.StatusPaid
		o.Payment = &p
	})
}

func (s *MemoryOrderStore) RecordShipment(ctx context.Context, number string, sh order.Shipment) error {
	return s.apply(number, order.StatusPaid, func(o *order.Order) {
		o.Status = order.StatusShipped
		o.Shipment = &sh
	})
}

// apply mutates the order only while it is still in status from.
func (s *MemoryOrderStore) apply(number string, from order.Status, mutate func(o *order.Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[number]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrStatusConflict
	}
	mutate(&o)
	o.UpdatedAt = time.Now().UTC()
	s.orders[number] = cloneOrder(o)
	return nil
}

func cloneOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	if o.Payment != nil {
		p := *o.Payment
		o.Payment = &p
	}
	if o.Shipment != nil {
		sh := *o.Shipment
		o.Shipment = &sh
	}
	return o
}
