package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/meta"
	"solana-nft-indexer/internal/storage"
)

// TokenService answers token queries, joining metadata where the caller
// needs it.
type TokenService struct {
	tokens   storage.TokenStore
	resolver *meta.Resolver
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens storage.TokenStore, resolver *meta.Resolver) *TokenService {
	return &TokenService{tokens: tokens, resolver: resolver}
}

// GetTokenWithMeta retrieves one token together with its resolved
// metadata. The token must exist (storage.ErrNotFound otherwise); its
// metadata may be nil when unresolvable.
func (s *TokenService) GetTokenWithMeta(ctx context.Context, mint string) (*domain.TokenWithMeta, error) {
	token, err := s.tokens.GetByMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	tokenMeta, err := s.resolver.ResolveForToken(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("resolve meta for %s: %w", mint, err)
	}

	return &domain.TokenWithMeta{Token: *token, Meta: tokenMeta}, nil
}

// ListTokens pages through tokens by recency, most recently updated
// first. from and to bound UpdatedAt inclusively when non-nil.
func (s *TokenService) ListTokens(ctx context.Context, from, to *time.Time, cursorStr string, limit int) ([]*domain.Token, string, error) {
	cursor, err := continuation.ParseDateID(cursorStr)
	if err != nil {
		return nil, "", err
	}

	items, err := s.tokens.FindAllByUpdatedAt(ctx, from, to, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("find tokens by updated at: %w", err)
	}

	page, next := continuation.Slice(items, limit, func(t *domain.Token) continuation.DateID {
		return continuation.DateID{DateMillis: t.UpdatedAt.UnixMilli(), ID: t.Mint}
	})
	return page, next, nil
}

// TokensByCollection pages through the tokens of a collection in token
// address order. Metadata drives membership, so the page is built from
// the resolver; tokens without materialized state still appear, with
// zero-valued token fields.
func (s *TokenService) TokensByCollection(ctx context.Context, collection, cursorStr string, limit int) ([]*domain.TokenWithMeta, string, error) {
	cursor, err := continuation.ParseID(cursorStr)
	if err != nil {
		return nil, "", err
	}
	fromTokenAddress := ""
	if cursor != nil {
		fromTokenAddress = cursor.ID
	}

	// One extra entry so the slicer can tell whether a next page exists.
	resolved, err := s.resolver.ResolveBatchByCollection(ctx, collection, fromTokenAddress, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("resolve collection %s: %w", collection, err)
	}

	mints := make([]string, 0, len(resolved))
	for mint := range resolved {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	items := make([]*domain.TokenWithMeta, 0, len(mints))
	for _, mint := range mints {
		tokenMeta := resolved[mint]
		item := &domain.TokenWithMeta{Meta: &tokenMeta}

		token, err := s.tokens.GetByMint(ctx, mint)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("load token %s: %w", mint, err)
		}
		if token != nil {
			item.Token = *token
		} else {
			item.Token = domain.Token{Mint: mint}
		}
		items = append(items, item)
	}

	page, next := continuation.Slice(items, limit, func(t *domain.TokenWithMeta) continuation.ID {
		return continuation.ID{ID: t.Token.Mint}
	})
	return page, next, nil
}
