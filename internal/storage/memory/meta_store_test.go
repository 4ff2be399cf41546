package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

func onChainMeta(tokenAddress, collection string) *domain.OnChainMeta {
	m := &domain.OnChainMeta{
		MetaAddress:  "meta-" + tokenAddress,
		TokenAddress: tokenAddress,
		Fields: domain.MetaFields{
			Name:   "Token " + tokenAddress,
			Symbol: "TOK",
			URI:    "https://example.com/" + tokenAddress,
		},
		IsMutable: true,
		UpdatedAt: time.Unix(1_700_000_000, 0),
	}
	if collection != "" {
		m.Fields.Collection = &domain.MetaCollection{Address: collection, Verified: true}
	}
	return m
}

func TestOnChainMetaStore_SaveAndFind(t *testing.T) {
	store := NewOnChainMetaStore()
	ctx := context.Background()

	if err := store.Save(ctx, onChainMeta("tokA", "coll1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.FindByTokenAddress(ctx, "tokA")
	if err != nil {
		t.Fatalf("FindByTokenAddress: %v", err)
	}
	if got == nil || got.Fields.Name != "Token tokA" {
		t.Errorf("unexpected meta: %+v", got)
	}

	// Absence is not an error.
	got, err = store.FindByTokenAddress(ctx, "missing")
	if err != nil {
		t.Fatalf("FindByTokenAddress: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent meta, got %+v", got)
	}
}

func TestOnChainMetaStore_FindByTokenAddresses_OmitsAbsent(t *testing.T) {
	store := NewOnChainMetaStore()
	ctx := context.Background()

	for _, addr := range []string{"tokA", "tokB"} {
		if err := store.Save(ctx, onChainMeta(addr, "")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.FindByTokenAddresses(ctx, []string{"tokA", "missing", "tokB"})
	if err != nil {
		t.Fatalf("FindByTokenAddresses: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}
}

func TestOnChainMetaStore_FindByCollection(t *testing.T) {
	store := NewOnChainMetaStore()
	ctx := context.Background()

	for _, addr := range []string{"tokC", "tokA", "tokB"} {
		if err := store.Save(ctx, onChainMeta(addr, "coll1")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Save(ctx, onChainMeta("tokZ", "coll2")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.FindByCollection(ctx, "coll1", "", 10)
	if err != nil {
		t.Fatalf("FindByCollection: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// Token address ascending.
	if got[0].TokenAddress != "tokA" || got[2].TokenAddress != "tokC" {
		t.Errorf("unexpected order: %s..%s", got[0].TokenAddress, got[2].TokenAddress)
	}

	// Resume after a token address.
	got, err = store.FindByCollection(ctx, "coll1", "tokA", 10)
	if err != nil {
		t.Fatalf("FindByCollection: %v", err)
	}
	if len(got) != 2 || got[0].TokenAddress != "tokB" {
		t.Errorf("unexpected resumed page: %+v", got)
	}

	// Limit respected.
	got, err = store.FindByCollection(ctx, "coll1", "", 2)
	if err != nil {
		t.Fatalf("FindByCollection: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}
}

func TestOffChainMetaStore_SaveAndFind(t *testing.T) {
	store := NewOffChainMetaStore()
	ctx := context.Background()

	m := &domain.OffChainMeta{
		TokenAddress: "tokA",
		Fields:       domain.MetaFields{Name: "Off Chain Name"},
		LoadedAt:     time.Unix(1_700_000_000, 0),
	}
	if err := store.Save(ctx, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.FindByTokenAddress(ctx, "tokA")
	if err != nil {
		t.Fatalf("FindByTokenAddress: %v", err)
	}
	if got == nil || got.Fields.Name != "Off Chain Name" {
		t.Errorf("unexpected meta: %+v", got)
	}

	got, err = store.FindByTokenAddress(ctx, "missing")
	if err != nil {
		t.Fatalf("FindByTokenAddress: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent meta, got %+v", got)
	}
}

func TestMetaStores_InvalidInput(t *testing.T) {
	ctx := context.Background()
	if err := NewOnChainMetaStore().Save(ctx, &domain.OnChainMeta{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := NewOffChainMetaStore().Save(ctx, &domain.OffChainMeta{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
