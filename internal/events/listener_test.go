package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/meta"
	"solana-nft-indexer/internal/storage/memory"
)

type capturingPublisher struct {
	tokenEvents []TokenUpdateEvent
	orderEvents []OrderUpdateEvent
	err         error
}

func (p *capturingPublisher) PublishTokenUpdate(_ context.Context, ev TokenUpdateEvent) error {
	if p.err != nil {
		return p.err
	}
	p.tokenEvents = append(p.tokenEvents, ev)
	return nil
}

func (p *capturingPublisher) PublishOrderUpdate(_ context.Context, ev OrderUpdateEvent) error {
	if p.err != nil {
		return p.err
	}
	p.orderEvents = append(p.orderEvents, ev)
	return nil
}

func newTestListener(pub Publisher) (*UpdateListener, *memory.OnChainMetaStore, *memory.OffChainMetaStore) {
	onChain := memory.NewOnChainMetaStore()
	offChain := memory.NewOffChainMetaStore()
	resolver := meta.NewResolver(onChain, offChain)
	return NewUpdateListener(resolver, pub, nil), onChain, offChain
}

func TestUpdateListener_TokenWithMetaPublishes(t *testing.T) {
	pub := &capturingPublisher{}
	listener, onChain, _ := newTestListener(pub)
	ctx := context.Background()

	err := onChain.Save(ctx, &domain.OnChainMeta{
		MetaAddress:  "metaA",
		TokenAddress: "mintA",
		Fields:       domain.MetaFields{Name: "Token A", Symbol: "TA"},
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("save meta: %v", err)
	}

	token := &domain.Token{Mint: "mintA", Supply: 1, UpdatedAt: time.UnixMilli(1_700_000_000_000).UTC()}
	if err := listener.OnTokenUpdated(ctx, token); err != nil {
		t.Fatalf("OnTokenUpdated() error = %v", err)
	}

	if len(pub.tokenEvents) != 1 {
		t.Fatalf("published %d token events, want 1", len(pub.tokenEvents))
	}
	ev := pub.tokenEvents[0]
	if ev.Mint != "mintA" {
		t.Errorf("Mint = %q, want mintA", ev.Mint)
	}
	if ev.Meta == nil || ev.Meta.Name != "Token A" {
		t.Errorf("Meta = %+v, want resolved name Token A", ev.Meta)
	}
	if !ev.UpdatedAt.Equal(token.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", ev.UpdatedAt, token.UpdatedAt)
	}
}

func TestUpdateListener_TokenWithoutMetaSkipped(t *testing.T) {
	pub := &capturingPublisher{}
	listener, _, _ := newTestListener(pub)

	token := &domain.Token{Mint: "mintA", UpdatedAt: time.Now()}
	if err := listener.OnTokenUpdated(context.Background(), token); err != nil {
		t.Fatalf("OnTokenUpdated() error = %v", err)
	}

	if len(pub.tokenEvents) != 0 {
		t.Fatalf("published %d token events, want 0", len(pub.tokenEvents))
	}
}

func TestUpdateListener_OffChainOnlyMetaSkipped(t *testing.T) {
	pub := &capturingPublisher{}
	listener, _, offChain := newTestListener(pub)
	ctx := context.Background()

	err := offChain.Save(ctx, &domain.OffChainMeta{
		TokenAddress: "mintA",
		Fields:       domain.MetaFields{Name: "Off Chain Only"},
		LoadedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("save meta: %v", err)
	}

	if err := listener.OnTokenUpdated(ctx, &domain.Token{Mint: "mintA"}); err != nil {
		t.Fatalf("OnTokenUpdated() error = %v", err)
	}
	if len(pub.tokenEvents) != 0 {
		t.Fatalf("published %d token events, want 0", len(pub.tokenEvents))
	}
}

func TestUpdateListener_OrderPublishedUnconditionally(t *testing.T) {
	pub := &capturingPublisher{}
	listener, _, _ := newTestListener(pub)

	order := &domain.Order{
		ID:           "house:maker:acc:SELL",
		AuctionHouse: "house",
		Maker:        "maker",
		Side:         domain.OrderSideSell,
		Status:       domain.OrderStatusActive,
		UpdatedAt:    time.UnixMilli(1_700_000_000_000).UTC(),
	}
	if err := listener.OnOrderUpdated(context.Background(), order); err != nil {
		t.Fatalf("OnOrderUpdated() error = %v", err)
	}

	if len(pub.orderEvents) != 1 {
		t.Fatalf("published %d order events, want 1", len(pub.orderEvents))
	}
	if pub.orderEvents[0].OrderID != order.ID {
		t.Errorf("OrderID = %q, want %q", pub.orderEvents[0].OrderID, order.ID)
	}
}

func TestUpdateListener_PublisherErrorPropagates(t *testing.T) {
	wantErr := errors.New("broker down")
	pub := &capturingPublisher{err: wantErr}
	listener, _, _ := newTestListener(pub)

	err := listener.OnOrderUpdated(context.Background(), &domain.Order{ID: "o1"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("OnOrderUpdated() error = %v, want %v", err, wantErr)
	}
}
