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

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	byMint map[string]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{byMint: make(map[string]*domain.Token)}
}

// Save upserts a token keyed by mint.
func (s *TokenStore) Save(_ context.Context, t *domain.Token) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCopy := *t
	s.byMint[t.Mint] = &tokenCopy
	return nil
}

// GetByMint retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// FindAllByUpdatedAt retrieves tokens with UpdatedAt descending, mint
// descending as tiebreaker, seeking past the cursor when present. Both
// window bounds are inclusive. Returns up to limit+1 items.
func (s *TokenStore) FindAllByUpdatedAt(_ context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Token
	for _, t := range s.byMint {
		if from != nil && t.UpdatedAt.Before(*from) {
			continue
		}
		if to != nil && t.UpdatedAt.After(*to) {
			continue
		}
		if cursor != nil && !afterDateCursor(t.UpdatedAt, t.Mint, cursor) {
			continue
		}
		tokenCopy := *t
		matched = append(matched, &tokenCopy)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].Mint > matched[j].Mint
	})

	return capPage(matched, limit), nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
