// Package meta merges the two independently-arriving metadata sources of
// a token: the on-chain metadata account and the off-chain document its
// URI points at.
package meta

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// Resolver joins on-chain and off-chain metadata repositories. All
// operations are read-only; repository failures propagate unchanged.
type Resolver struct {
	onChain  storage.OnChainMetaStore
	offChain storage.OffChainMetaStore
}

// NewResolver creates a Resolver over the two metadata repositories.
func NewResolver(onChain storage.OnChainMetaStore, offChain storage.OffChainMetaStore) *Resolver {
	return &Resolver{onChain: onChain, offChain: offChain}
}

// Merge combines on-chain and off-chain metadata fields into a TokenMeta.
// On-chain presence gates the result: nil onChain yields nil. Off-chain
// fields override on-chain ones field-by-field where present; absent
// off-chain fields fall back to the on-chain value.
func Merge(onChain, offChain *domain.MetaFields) *domain.TokenMeta {
	if onChain == nil {
		return nil
	}

	merged := domain.TokenMeta{
		Name:                 onChain.Name,
		Symbol:               onChain.Symbol,
		URI:                  onChain.URI,
		SellerFeeBasisPoints: onChain.SellerFeeBasisPoints,
		Creators:             onChain.Creators,
		Collection:           onChain.Collection,
	}
	if offChain == nil {
		return &merged
	}

	if offChain.Name != "" {
		merged.Name = offChain.Name
	}
	if offChain.Symbol != "" {
		merged.Symbol = offChain.Symbol
	}
	if offChain.URI != "" {
		merged.URI = offChain.URI
	}
	if offChain.SellerFeeBasisPoints != 0 {
		merged.SellerFeeBasisPoints = offChain.SellerFeeBasisPoints
	}
	if len(offChain.Creators) > 0 {
		merged.Creators = offChain.Creators
	}
	if offChain.Collection != nil {
		merged.Collection = offChain.Collection
	}
	return &merged
}

// ResolveForToken resolves the merged metadata of a single token. A token
// without an on-chain metadata account has no resolvable metadata: the
// result is nil with no error, regardless of off-chain presence.
func (r *Resolver) ResolveForToken(ctx context.Context, tokenAddress string) (*domain.TokenMeta, error) {
	onChain, err := r.onChain.FindByTokenAddress(ctx, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("find on-chain meta for %s: %w", tokenAddress, err)
	}
	if onChain == nil {
		return nil, nil
	}

	offChain, err := r.offChain.FindByTokenAddress(ctx, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("find off-chain meta for %s: %w", tokenAddress, err)
	}

	var offFields *domain.MetaFields
	if offChain != nil {
		offFields = &offChain.Fields
	}
	return Merge(&onChain.Fields, offFields), nil
}

// ResolveBatchByCollection resolves metadata for a page of a collection.
//
// The two collection-scoped fetches run concurrently and both must
// complete before the backfill step. Because the two sources page
// independently, a token can fall inside one source's page but outside
// the other's; the backfill re-fetches exactly the asymmetric key sets so
// those tokens are not lost. Tokens without any on-chain record are
// dropped from the result.
func (r *Resolver) ResolveBatchByCollection(
	ctx context.Context,
	collection string,
	fromTokenAddress string,
	limit int,
) (map[string]domain.TokenMeta, error) {
	var (
		onChainPage  []*domain.OnChainMeta
		offChainPage []*domain.OffChainMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := r.onChain.FindByCollection(gctx, collection, fromTokenAddress, limit)
		if err != nil {
			return fmt.Errorf("find on-chain meta by collection %s: %w", collection, err)
		}
		onChainPage = page
		return nil
	})
	g.Go(func() error {
		page, err := r.offChain.FindByCollection(gctx, collection, fromTokenAddress, limit)
		if err != nil {
			return fmt.Errorf("find off-chain meta by collection %s: %w", collection, err)
		}
		offChainPage = page
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	onChainMap := make(map[string]domain.MetaFields, len(onChainPage))
	for _, m := range onChainPage {
		onChainMap[m.TokenAddress] = m.Fields
	}
	offChainMap := make(map[string]domain.MetaFields, len(offChainPage))
	for _, m := range offChainPage {
		offChainMap[m.TokenAddress] = m.Fields
	}

	restOnChain, err := r.onChain.FindByTokenAddresses(ctx, missingKeys(offChainMap, onChainMap))
	if err != nil {
		return nil, fmt.Errorf("backfill on-chain meta: %w", err)
	}
	for _, m := range restOnChain {
		onChainMap[m.TokenAddress] = m.Fields
	}

	restOffChain, err := r.offChain.FindByTokenAddresses(ctx, missingKeys(onChainMap, offChainMap))
	if err != nil {
		return nil, fmt.Errorf("backfill off-chain meta: %w", err)
	}
	for _, m := range restOffChain {
		offChainMap[m.TokenAddress] = m.Fields
	}

	result := make(map[string]domain.TokenMeta, len(onChainMap))
	for tokenAddress, onFields := range onChainMap {
		var offFields *domain.MetaFields
		if f, ok := offChainMap[tokenAddress]; ok {
			offFields = &f
		}
		onCopy := onFields
		result[tokenAddress] = *Merge(&onCopy, offFields)
	}
	return result, nil
}

// missingKeys returns the keys of have that are absent from want.
func missingKeys(have, want map[string]domain.MetaFields) []string {
	var keys []string
	for k := range have {
		if _, ok := want[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}
