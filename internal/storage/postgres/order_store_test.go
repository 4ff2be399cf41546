package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

func testOrder(id string, updatedAt time.Time) *domain.Order {
	return &domain.Order{
		ID:           id,
		AuctionHouse: "houseA",
		Maker:        "makerA",
		Side:         domain.OrderSideSell,
		TokenAccount: "tokenAcct",
		Price:        1_000_000,
		Amount:       1,
		Status:       domain.OrderStatusActive,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
}

func TestOrderStore_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOrderStore(pool)
	ctx := context.Background()
	ts := time.UnixMilli(1_700_000_000_000).UTC()

	o := testOrder("o1", ts)
	o.Mint = ptr("mintX")
	require.NoError(t, store.Save(ctx, o))

	got, err := store.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "o1", got.ID)
	require.Equal(t, domain.OrderSideSell, got.Side)
	require.Equal(t, domain.OrderStatusActive, got.Status)
	require.NotNil(t, got.Mint)
	require.Equal(t, "mintX", *got.Mint)
	require.True(t, got.UpdatedAt.Equal(ts))

	// Upsert updates mutable fields.
	o.Status = domain.OrderStatusFilled
	o.UpdatedAt = ts.Add(time.Minute)
	require.NoError(t, store.Save(ctx, o))

	got, err = store.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFilled, got.Status)
}

func TestOrderStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOrderStore(pool)
	_, err := store.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOrderStore_FindAllByUpdatedAt_Paging(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOrderStore(pool)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000).UTC()

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.Save(ctx, testOrder(id, base.Add(time.Duration(i)*time.Minute))))
	}

	// Recency order, limit+1 for page detection.
	got, err := store.FindAllByUpdatedAt(ctx, nil, nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "e", got[0].ID)
	require.Equal(t, "d", got[1].ID)

	// Resume from cursor.
	cursor := &continuation.DateID{DateMillis: got[1].UpdatedAt.UnixMilli(), ID: got[1].ID}
	got, err = store.FindAllByUpdatedAt(ctx, nil, nil, cursor, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "c", got[0].ID)

	// Window bounds are inclusive.
	from := base.Add(time.Minute)
	to := base.Add(3 * time.Minute)
	got, err = store.FindAllByUpdatedAt(ctx, &from, &to, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "d", got[0].ID)
	require.Equal(t, "b", got[2].ID)
}

func TestOrderStore_FindSellOrdersByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOrderStore(pool)
	ctx := context.Background()
	ts := time.UnixMilli(1_700_000_000_000).UTC()

	prices := map[string]uint64{"s1": 300, "s2": 100, "s3": 200}
	for id, price := range prices {
		o := testOrder(id, ts)
		o.Mint = ptr("mintX")
		o.Price = price
		require.NoError(t, store.Save(ctx, o))
	}

	cancelled := testOrder("s4", ts)
	cancelled.Mint = ptr("mintX")
	cancelled.Price = 50
	cancelled.Status = domain.OrderStatusCancelled
	require.NoError(t, store.Save(ctx, cancelled))

	bid := testOrder("b1", ts)
	bid.Mint = ptr("mintX")
	bid.Side = domain.OrderSideBuy
	bid.Price = 10
	require.NoError(t, store.Save(ctx, bid))

	got, err := store.FindSellOrdersByMint(ctx, "mintX", nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "s2", got[0].ID)
	require.Equal(t, "s3", got[1].ID)
	require.Equal(t, "s1", got[2].ID)

	cursor := &continuation.PriceID{Price: got[0].Price, ID: got[0].ID}
	got, err = store.FindSellOrdersByMint(ctx, "mintX", cursor, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "s3", got[0].ID)
}
