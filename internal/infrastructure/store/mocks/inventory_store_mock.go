package mocks

import (
	"context"
	"sync"

	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/infrastructure/store"
)

// MockInventoryStore wraps an in-memory inventory and records reservation traffic
type MockInventoryStore struct {
	mu    sync.Mutex
	inner *store.MemoryInventoryStore

	ReserveCalls  []string
	ReleaseCalls  []string
	MarkSoldCalls [][]string

	ReserveErr  error
	ReleaseErr  error
	MarkSoldErr error
}

// NewMockInventoryStore creates a new MockInventoryStore stocked with items
func NewMockInventoryStore(items ...inventory.Item) *MockInventoryStore {
	inner := store.NewMemoryInventoryStore()
	for _, item := range items {
		_ = inner.Put(context.Background(), item)
	}
	return &MockInventoryStore{inner: inner}
}

func (m *MockInventoryStore) Get(ctx context.Context, id string) (*inventory.Item, error) {
	return m.inner.Get(ctx, id)
}

func (m *MockInventoryStore) GetBySlug(ctx context.Context, slug string) (*inventory.Item, error) {
	return m.inner.GetBySlug(ctx, slug)
}

func (m *MockInventoryStore) Reserve(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	m.ReserveCalls = append(m.ReserveCalls, id)
	err := m.ReserveErr
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return m.inner.Reserve(ctx, id)
}

func (m *MockInventoryStore) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, id)
	err := m.ReleaseErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Release(ctx, id)
}

func (m *MockInventoryStore) MarkSold(ctx context.Context, ids []string) error {
	m.mu.Lock()
	m.MarkSoldCalls = append(m.MarkSoldCalls, append([]string(nil), ids...))
	err := m.MarkSoldErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.MarkSold(ctx, ids)
}

// Status returns the current status of an item, or "" when unknown
func (m *MockInventoryStore) Status(id string) inventory.Status {
	item, err := m.inner.Get(context.Background(), id)
	if err != nil {
		return ""
	}
	return item.Status
}

// ReleaseCount returns how many times Release was called
func (m *MockInventoryStore) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReleaseCalls)
}
