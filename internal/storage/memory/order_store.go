package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.Order
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{byID: make(map[string]*domain.Order)}
}

// Save upserts an order keyed by Order.ID.
func (s *OrderStore) Save(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orderCopy := *o
	s.byID[o.ID] = &orderCopy
	return nil
}

// GetByID retrieves an order. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	orderCopy := *o
	return &orderCopy, nil
}

// FindAllByUpdatedAt retrieves orders with UpdatedAt descending, id
// descending as tiebreaker, seeking past the cursor when present.
// Both window bounds are inclusive. Returns up to limit+1 items.
func (s *OrderStore) FindAllByUpdatedAt(_ context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Order
	for _, o := range s.byID {
		if from != nil && o.UpdatedAt.Before(*from) {
			continue
		}
		if to != nil && o.UpdatedAt.After(*to) {
			continue
		}
		if cursor != nil && !afterDateCursor(o.UpdatedAt, o.ID, cursor) {
			continue
		}
		orderCopy := *o
		matched = append(matched, &orderCopy)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return capPage(matched, limit), nil
}

// FindSellOrdersByMint retrieves active sell orders for a mint with price
// ascending, id ascending as tiebreaker, seeking past the cursor when
// present. Returns up to limit+1 items.
func (s *OrderStore) FindSellOrdersByMint(_ context.Context, mint string, cursor *continuation.PriceID, limit int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Order
	for _, o := range s.byID {
		if o.Side != domain.OrderSideSell || o.Status != domain.OrderStatusActive {
			continue
		}
		if o.Mint == nil || *o.Mint != mint {
			continue
		}
		if cursor != nil {
			if o.Price < cursor.Price {
				continue
			}
			if o.Price == cursor.Price && o.ID <= cursor.ID {
				continue
			}
		}
		orderCopy := *o
		matched = append(matched, &orderCopy)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Price != matched[j].Price {
			return matched[i].Price < matched[j].Price
		}
		return matched[i].ID < matched[j].ID
	})

	return capPage(matched, limit), nil
}

// afterDateCursor reports whether the item sorts strictly after the
// cursor position in (UpdatedAt DESC, ID DESC) order.
func afterDateCursor(updatedAt time.Time, id string, cursor *continuation.DateID) bool {
	millis := updatedAt.UnixMilli()
	if millis != cursor.DateMillis {
		return millis < cursor.DateMillis
	}
	return id < cursor.ID
}

func capPage[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit+1 {
		return items[:limit+1]
	}
	return items
}

var _ storage.OrderStore = (*OrderStore)(nil)
