package storage

import (
	"context"
	"time"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
)

// OrderRecordStore is the append-only stream of decoded auction house
// order records. Records are never updated in place.
type OrderRecordStore interface {
	// Insert appends a record. Returns ErrDuplicateKey if its RecordID exists.
	Insert(ctx context.Context, r domain.OrderRecord) error

	// InsertBulk appends multiple records, skipping duplicates.
	InsertBulk(ctx context.Context, records []domain.OrderRecord) error

	// GetByAuctionHouse retrieves records of one auction house instance,
	// ordered by timestamp ASC.
	GetByAuctionHouse(ctx context.Context, auctionHouse string) ([]domain.OrderRecord, error)
}

// OrderStore holds materialized order state folded from the record stream.
type OrderStore interface {
	// Save upserts an order keyed by Order.ID.
	Save(ctx context.Context, o *domain.Order) error

	// GetByID retrieves an order. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// FindAllByUpdatedAt retrieves orders with UpdatedAt descending,
	// seeking past the cursor when present. Returns up to limit+1 items
	// so callers can detect a following page.
	FindAllByUpdatedAt(ctx context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Order, error)

	// FindSellOrdersByMint retrieves active sell orders for a mint with
	// price ascending (best price first), seeking past the cursor when
	// present. Returns up to limit+1 items.
	FindSellOrdersByMint(ctx context.Context, mint string, cursor *continuation.PriceID, limit int) ([]*domain.Order, error)
}

// TokenStore holds materialized token state.
type TokenStore interface {
	// Save upserts a token keyed by mint.
	Save(ctx context.Context, t *domain.Token) error

	// GetByMint retrieves a token. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// FindAllByUpdatedAt retrieves tokens with UpdatedAt descending,
	// seeking past the cursor when present. Returns up to limit+1 items.
	FindAllByUpdatedAt(ctx context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Token, error)
}

// OnChainMetaStore is the repository of on-chain metadata accounts.
type OnChainMetaStore interface {
	// Save upserts metadata keyed by token address.
	Save(ctx context.Context, m *domain.OnChainMeta) error

	// FindByTokenAddress retrieves metadata for one token; nil result
	// (with nil error) when absent.
	FindByTokenAddress(ctx context.Context, tokenAddress string) (*domain.OnChainMeta, error)

	// FindByTokenAddresses retrieves metadata for the given tokens,
	// omitting absent ones.
	FindByTokenAddresses(ctx context.Context, tokenAddresses []string) ([]*domain.OnChainMeta, error)

	// FindByCollection retrieves metadata of a collection ordered by
	// token address ASC, starting after fromTokenAddress when non-empty.
	FindByCollection(ctx context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OnChainMeta, error)
}

// TradeActivityStore archives executed sales for analytical queries.
// Backed by ClickHouse; replayed records collapse on RecordID at merge
// time, so Archive is safe to call again for the same slot range.
type TradeActivityStore interface {
	// Archive appends executed-sale records.
	Archive(ctx context.Context, records []domain.ExecuteSaleRecord) error

	// FindByMint retrieves executed sales of a mint within [from, to],
	// ordered by timestamp ASC. Nil bounds leave the range open.
	FindByMint(ctx context.Context, mint string, from, to *time.Time) ([]domain.ExecuteSaleRecord, error)
}

// OffChainMetaStore is the repository of metadata loaded from the URI
// target of on-chain accounts. Same shape as OnChainMetaStore.
type OffChainMetaStore interface {
	Save(ctx context.Context, m *domain.OffChainMeta) error
	FindByTokenAddress(ctx context.Context, tokenAddress string) (*domain.OffChainMeta, error)
	FindByTokenAddresses(ctx context.Context, tokenAddresses []string) ([]*domain.OffChainMeta, error)
	FindByCollection(ctx context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OffChainMeta, error)
}
