package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/unique-shop/internal/infrastructure/store"
)

// MockSessionStore wraps an in-memory session store and lets tests inject failures
type MockSessionStore struct {
	mu    sync.Mutex
	inner *store.MemorySessionStore

	// For tracking calls in tests
	SetCalls    []SetCall
	DeleteCalls []DeleteCall

	GetErr     error
	SetErr     error
	DeleteErr  error
	DestroyErr error
}

// SetCall records parameters passed to Set
type SetCall struct {
	SessionID string
	Key       string
	Value     []byte
}

// DeleteCall records parameters passed to Delete
type DeleteCall struct {
	SessionID string
	Key       string
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore(ttl time.Duration) *MockSessionStore {
	return &MockSessionStore{inner: store.NewMemorySessionStore(ttl)}
}

// Inner exposes the backing store so tests can seed data
func (m *MockSessionStore) Inner() *store.MemorySessionStore {
	return m.inner
}

func (m *MockSessionStore) Get(ctx context.Context, sid, key string) ([]byte, bool, error) {
	m.mu.Lock()
	err := m.GetErr
	m.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return m.inner.Get(ctx, sid, key)
}

func (m *MockSessionStore) Set(ctx context.Context, sid, key string, value []byte) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, SetCall{SessionID: sid, Key: key, Value: value})
	err := m.SetErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Set(ctx, sid, key, value)
}

func (m *MockSessionStore) Delete(ctx context.Context, sid, key string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{SessionID: sid, Key: key})
	err := m.DeleteErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Delete(ctx, sid, key)
}

func (m *MockSessionStore) Expired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return m.inner.Expired(ctx, now, limit)
}

func (m *MockSessionStore) Exists(ctx context.Context, sid string) (bool, error) {
	return m.inner.Exists(ctx, sid)
}

func (m *MockSessionStore) Destroy(ctx context.Context, sid string) error {
	m.mu.Lock()
	err := m.DestroyErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Destroy(ctx, sid)
}

// SetFailure sets the error returned by Set
func (m *MockSessionStore) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetErr = err
}
