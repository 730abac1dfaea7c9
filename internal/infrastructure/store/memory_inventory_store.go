package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MemoryInventoryStore is an in-process inventory. The mutex makes Reserve a
// compare-and-swap.
type MemoryInventoryStore struct {
	mu    sync.RWMutex
	items map[string]inventory.Item
	slugs map[string]string
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{
		items: make(map[string]inventory.Item),
		slugs: make(map[string]string),
	}
}

// Put inserts or replaces an item. Items without a status are stocked as available.
func (s *MemoryInventoryStore) Put(ctx context.Context, item inventory.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.Status == "" {
		item.Status = inventory.StatusAvailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.items[item.ID]; ok {
		delete(s.slugs, old.Slug)
	}
	s.items[item.ID] = item
	s.slugs[item.Slug] = item.ID
	return nil
}

func (s *MemoryInventoryStore) Get(ctx context.Context, id string) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	return &item, nil
}

func (s *MemoryInventoryStore) GetBySlug(ctx context.Context, slug string) (*inventory.Item, error) {
	s.mu.RLock()
	id, ok := s.slugs[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	return s.Get(ctx, id)
}

func (s *MemoryInventoryStore) Reserve(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != inventory.StatusAvailable {
		return false, nil
	}
	item.Status = inventory.StatusReserved
	s.items[id] = item
	return true, nil
}

func (s *MemoryInventoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if ok && item.Status == inventory.StatusReserved {
		item.Status = inventory.StatusAvailable
		s.items[id] = item
	}
	return nil
}

func (s *MemoryInventoryStore) MarkSold(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sold := 0
	for _, id := range ids {
		item, ok := s.items[id]
		if ok && item.Status == inventory.StatusReserved {
			item.Status = inventory.StatusSold
			s.items[id] = item
			sold++
		}
	}
	if sold != len(ids) {
		return fmt.Errorf("marked %d of %d items sold", sold, len(ids))
	}
	return nil
}

type seedItem struct {
	ID       string `yaml:"id"`
	Slug     string `yaml:"slug"`
	Title    string `yaml:"title"`
	Price    string `yaml:"price"`
	Currency string `yaml:"currency"`
}

// ItemStocker is implemented by both inventory stores.
type ItemStocker interface {
	Get(ctx context.Context, id string) (*inventory.Item, error)
	Put(ctx context.Context, item inventory.Item) error
}

// SeedInventory reads a YAML list of items and stocks the ones not yet known as
// available. Existing items keep their status, so a restart never returns a
// reserved or sold item to sale. It reports how many items were added.
func SeedInventory(ctx context.Context, dst ItemStocker, r io.Reader) (int, error) {
	var seeds []seedItem
	if err := yaml.NewDecoder(r).Decode(&seeds); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	added := 0
	for _, s := range seeds {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return added, fmt.Errorf("item %s: price %q: %w", s.ID, s.Price, err)
		}
		_, err = dst.Get(ctx, s.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, inventory.ErrItemNotFound) {
			return added, fmt.Errorf("item %s: %w", s.ID, err)
		}
		currency := s.Currency
		if currency == "" {
			currency = "USD"
		}
		item := inventory.Item{
			ID:       s.ID,
			Slug:     s.Slug,
			Title:    s.Title,
			Price:    price,
			Currency: currency,
			Status:   inventory.StatusAvailable,
		}
		if err := dst.Put(ctx, item); err != nil {
			return added, fmt.Errorf("item %s: %w", s.ID, err)
		}
		added++
	}
	return added, nil
}
