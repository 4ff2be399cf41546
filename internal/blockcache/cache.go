// Package blockcache wraps a Solana RPC client with a persistent block
// cache. Historical blocks are immutable, so re-reading them during
// backfill should not cost RPC calls; recent blocks may still be
// reorganized and are never cached.
package blockcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"solana-nft-indexer/internal/solana"
)

// Default admission parameters.
const (
	// DefaultFinalityMargin is how far behind the head a slot must be
	// before its block is considered stable (roughly 6 hours).
	DefaultFinalityMargin = 50_000

	// DefaultHeadRefreshInterval bounds how often the head slot is
	// re-read. A stale head only delays admission, never corrupts it.
	DefaultHeadRefreshInterval = time.Hour
)

// ByteStore persists raw cached block payloads keyed by slot.
type ByteStore interface {
	// Find returns the cached payload, or (nil, nil) when absent.
	Find(ctx context.Context, slot int64) ([]byte, error)

	// Save persists the payload. Writes are idempotent per slot.
	Save(ctx context.Context, slot int64, data []byte) error
}

// Cache is a caching solana.RPCClient decorator.
type Cache struct {
	inner  solana.RPCClient
	store  ByteStore
	logger *zap.Logger
	now    func() time.Time

	finalityMargin  int64
	refreshInterval time.Duration

	headMu      sync.Mutex
	head        int64
	headRefresh time.Time

	hits        prometheus.Counter
	misses      prometheus.Counter
	loadedBytes prometheus.Counter
	fetchTimer  prometheus.Histogram
}

// Option configures Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithFinalityMargin sets the slot distance behind head required for
// admission.
func WithFinalityMargin(margin int64) Option {
	return func(c *Cache) {
		c.finalityMargin = margin
	}
}

// WithHeadRefreshInterval sets how often the head slot is re-read.
func WithHeadRefreshInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.refreshInterval = d
	}
}

// New creates a Cache over the given client and store, registering its
// metrics on reg.
func New(inner solana.RPCClient, store ByteStore, reg prometheus.Registerer, opts ...Option) *Cache {
	c := &Cache{
		inner:           inner,
		store:           store,
		logger:          zap.NewNop(),
		now:             time.Now,
		finalityMargin:  DefaultFinalityMargin,
		refreshInterval: DefaultHeadRefreshInterval,

		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "block_cache_hits_total",
			Help: "Blocks served from the cache.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "block_cache_misses_total",
			Help: "Blocks fetched from RPC because the cache had no usable payload.",
		}),
		loadedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "block_cache_loaded_bytes_total",
			Help: "Total bytes of cached payloads served.",
		}),
		fetchTimer: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "block_cache_fetch_seconds",
			Help: "Cache lookup latency.",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ solana.RPCClient = (*Cache)(nil)

// GetBlock returns the block for slot, serving from the cache when a
// usable payload exists. DetailNone requests bypass the cache entirely.
func (c *Cache) GetBlock(ctx context.Context, slot int64, detail solana.DetailLevel) (*solana.Block, error) {
	if detail == solana.DetailNone {
		return c.inner.GetBlock(ctx, slot, detail)
	}

	start := time.Now()
	cached, err := c.fromCache(ctx, slot)
	c.fetchTimer.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if cached != nil {
		c.hits.Inc()
		c.loadedBytes.Add(float64(len(cached)))

		var block solana.Block
		if err := json.Unmarshal(cached, &block); err != nil {
			return nil, fmt.Errorf("decode cached block %d: %w", slot, err)
		}
		return &block, nil
	}

	c.misses.Inc()

	block, err := c.inner.GetBlock(ctx, slot, detail)
	if err != nil {
		return nil, err
	}

	if c.shouldSave(ctx, slot) {
		data, err := json.Marshal(block)
		if err != nil {
			return nil, fmt.Errorf("encode block %d: %w", slot, err)
		}
		if err := c.store.Save(ctx, slot, data); err != nil {
			return nil, fmt.Errorf("save block %d: %w", slot, err)
		}
	}

	return block, nil
}

// GetLatestSlot passes through to the wrapped client.
func (c *Cache) GetLatestSlot(ctx context.Context) (int64, error) {
	return c.inner.GetLatestSlot(ctx)
}

// GetTransaction passes through to the wrapped client.
func (c *Cache) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return c.inner.GetTransaction(ctx, signature)
}

// fromCache returns a usable cached payload or nil. Payloads of two
// bytes or fewer are empty JSON scaffolding from interrupted writes and
// are treated as absent.
func (c *Cache) fromCache(ctx context.Context, slot int64) ([]byte, error) {
	data, err := c.store.Find(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("find block %d: %w", slot, err)
	}
	if data == nil {
		return nil, nil
	}
	if len(data) <= 2 {
		c.logger.Info("cached block payload unusable, reloading",
			zap.Int64("slot", slot),
			zap.Int("size", len(data)))
		return nil, nil
	}
	return data, nil
}

// shouldSave reports whether slot is far enough behind the head to be
// stable.
func (c *Cache) shouldSave(ctx context.Context, slot int64) bool {
	head := c.refreshHead(ctx)
	should := head != 0 && slot < head-c.finalityMargin
	if !should {
		c.logger.Info("skip caching block that may still be reorganized",
			zap.Int64("slot", slot),
			zap.Int64("head", head))
	}
	return should
}

// refreshHead returns the last known head slot, re-reading it from RPC
// at most once per refresh interval. A failed read keeps the previous
// head.
func (c *Cache) refreshHead(ctx context.Context) int64 {
	c.headMu.Lock()
	head := c.head
	refreshed := c.headRefresh
	c.headMu.Unlock()

	if head != 0 && c.now().Sub(refreshed) <= c.refreshInterval {
		return head
	}

	latest, err := c.inner.GetLatestSlot(ctx)

	c.headMu.Lock()
	defer c.headMu.Unlock()
	if err != nil {
		c.logger.Warn("head slot refresh failed", zap.Error(err))
	} else if latest != 0 {
		c.head = latest
	}
	c.headRefresh = c.now()
	return c.head
}
