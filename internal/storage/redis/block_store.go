package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-nft-indexer/internal/blockcache"
)

const blockKeyPrefix = "block:slot:"

// BlockStore implements blockcache.ByteStore on Redis. Values expire
// after TTL so the cache does not grow without bound; zero TTL keeps
// entries forever.
type BlockStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBlockStore creates a new BlockStore.
func NewBlockStore(rdb *redis.Client, ttl time.Duration) *BlockStore {
	return &BlockStore{rdb: rdb, ttl: ttl}
}

// Compile-time interface check.
var _ blockcache.ByteStore = (*BlockStore)(nil)

// Find retrieves a cached block payload; nil result (with nil error)
// when absent.
func (s *BlockStore) Find(ctx context.Context, slot int64) ([]byte, error) {
	val, err := s.rdb.Get(ctx, blockKey(slot)).Bytes()
	switch {
	case err == redis.Nil:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get block %d: %w", slot, err)
	}
	return val, nil
}

// Save stores a block payload. Overwriting an existing slot is harmless
// since payloads below the finality margin never change.
func (s *BlockStore) Save(ctx context.Context, slot int64, payload []byte) error {
	if err := s.rdb.Set(ctx, blockKey(slot), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set block %d: %w", slot, err)
	}
	return nil
}

func blockKey(slot int64) string {
	return fmt.Sprintf("%s%d", blockKeyPrefix, slot)
}
