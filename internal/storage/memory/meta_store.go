package memory

import (
	"context"
	"sort"
	"sync"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OnChainMetaStore is an in-memory implementation of storage.OnChainMetaStore.
type OnChainMetaStore struct {
	mu      sync.RWMutex
	byToken map[string]*domain.OnChainMeta
}

// NewOnChainMetaStore creates a new in-memory on-chain metadata store.
func NewOnChainMetaStore() *OnChainMetaStore {
	return &OnChainMetaStore{byToken: make(map[string]*domain.OnChainMeta)}
}

// Save upserts metadata keyed by token address.
func (s *OnChainMetaStore) Save(_ context.Context, m *domain.OnChainMeta) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metaCopy := *m
	s.byToken[m.TokenAddress] = &metaCopy
	return nil
}

// FindByTokenAddress retrieves metadata for one token; nil result (with
// nil error) when absent.
func (s *OnChainMetaStore) FindByTokenAddress(_ context.Context, tokenAddress string) (*domain.OnChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byToken[tokenAddress]
	if !exists {
		return nil, nil
	}
	metaCopy := *m
	return &metaCopy, nil
}

// FindByTokenAddresses retrieves metadata for the given tokens, omitting
// absent ones.
func (s *OnChainMetaStore) FindByTokenAddresses(_ context.Context, tokenAddresses []string) ([]*domain.OnChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OnChainMeta
	for _, addr := range tokenAddresses {
		if m, exists := s.byToken[addr]; exists {
			metaCopy := *m
			out = append(out, &metaCopy)
		}
	}
	return out, nil
}

// FindByCollection retrieves metadata of a collection ordered by token
// address ASC, starting after fromTokenAddress when non-empty.
func (s *OnChainMetaStore) FindByCollection(_ context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OnChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OnChainMeta
	for _, m := range s.byToken {
		if m.Fields.Collection == nil || m.Fields.Collection.Address != collection {
			continue
		}
		if fromTokenAddress != "" && m.TokenAddress <= fromTokenAddress {
			continue
		}
		metaCopy := *m
		out = append(out, &metaCopy)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ storage.OnChainMetaStore = (*OnChainMetaStore)(nil)

// OffChainMetaStore is an in-memory implementation of storage.OffChainMetaStore.
type OffChainMetaStore struct {
	mu      sync.RWMutex
	byToken map[string]*domain.OffChainMeta
}

// NewOffChainMetaStore creates a new in-memory off-chain metadata store.
func NewOffChainMetaStore() *OffChainMetaStore {
	return &OffChainMetaStore{byToken: make(map[string]*domain.OffChainMeta)}
}

// Save upserts metadata keyed by token address.
func (s *OffChainMetaStore) Save(_ context.Context, m *domain.OffChainMeta) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metaCopy := *m
	s.byToken[m.TokenAddress] = &metaCopy
	return nil
}

// FindByTokenAddress retrieves metadata for one token; nil result (with
// nil error) when absent.
func (s *OffChainMetaStore) FindByTokenAddress(_ context.Context, tokenAddress string) (*domain.OffChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byToken[tokenAddress]
	if !exists {
		return nil, nil
	}
	metaCopy := *m
	return &metaCopy, nil
}

// FindByTokenAddresses retrieves metadata for the given tokens, omitting
// absent ones.
func (s *OffChainMetaStore) FindByTokenAddresses(_ context.Context, tokenAddresses []string) ([]*domain.OffChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OffChainMeta
	for _, addr := range tokenAddresses {
		if m, exists := s.byToken[addr]; exists {
			metaCopy := *m
			out = append(out, &metaCopy)
		}
	}
	return out, nil
}

// FindByCollection retrieves metadata of a collection ordered by token
// address ASC, starting after fromTokenAddress when non-empty.
func (s *OffChainMetaStore) FindByCollection(_ context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OffChainMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OffChainMeta
	for _, m := range s.byToken {
		if m.Fields.Collection == nil || m.Fields.Collection.Address != collection {
			continue
		}
		if fromTokenAddress != "" && m.TokenAddress <= fromTokenAddress {
			continue
		}
		metaCopy := *m
		out = append(out, &metaCopy)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ storage.OffChainMetaStore = (*OffChainMetaStore)(nil)
