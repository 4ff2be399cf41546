package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"solana-nft-indexer/internal/blockcache"
	"solana-nft-indexer/internal/config"
	"solana-nft-indexer/internal/events"
	"solana-nft-indexer/internal/ingestion"
	"solana-nft-indexer/internal/meta"
	"solana-nft-indexer/internal/observability"
	"solana-nft-indexer/internal/solana"
	"solana-nft-indexer/internal/storage/clickhouse"
	"solana-nft-indexer/internal/storage/migrations"
	"solana-nft-indexer/internal/storage/postgres"
	redisstore "solana-nft-indexer/internal/storage/redis"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Solana auction house order indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest orders from the live log subscription",
		RunE:  runLive,
	}
	addCommonFlags(runCmd)
	root.AddCommand(runCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reprocess a historical slot range",
		RunE:  runBackfill,
	}
	addCommonFlags(backfillCmd)
	backfillCmd.Flags().Int64("from-slot", 0, "first slot of the range (inclusive)")
	backfillCmd.Flags().Int64("to-slot", 0, "last slot of the range (inclusive)")
	root.AddCommand(backfillCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc-endpoint", "", "Solana JSON-RPC HTTP endpoint")
	cmd.Flags().String("ws-endpoint", "", "Solana WebSocket endpoint")
	cmd.Flags().String("program", "", "auction house program ID to index")
	cmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string")
	cmd.Flags().String("clickhouse-dsn", "", "ClickHouse DSN for the trade activity archive (empty to disable)")
	cmd.Flags().String("redis-addr", "", "Redis address for the block cache and update events")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database number")
	cmd.Flags().Duration("block-cache-ttl", 0, "TTL of cached block payloads (0 keeps them forever)")
	cmd.Flags().StringSlice("blacklist-mints", nil, "mints whose records are dropped (comma-separated)")
	cmd.Flags().String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
}

// pipeline bundles everything a command needs after wiring: the processor
// with its stores, the cached RPC client and the shared metrics registry.
type pipeline struct {
	processor *ingestion.Processor
	client    solana.RPCClient
	registry  *prometheus.Registry

	closers []func()
}

func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func buildPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{registry: observability.NewRegistry()}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	p.closers = append(p.closers, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		p.close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	p.closers = append(p.closers, func() { rdb.Close() })

	opts := ingestion.ProcessorOptions{
		Records:    postgres.NewOrderRecordStore(pool),
		Orders:     postgres.NewOrderStore(pool),
		Tokens:     postgres.NewTokenStore(pool),
		Filter:     ingestion.NewTokenFilter(cfg.BlacklistMints),
		Logger:     logger,
		Registerer: p.registry,
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			p.close()
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		p.closers = append(p.closers, func() { conn.Close() })

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			p.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		opts.Activities = clickhouse.NewTradeActivityStore(conn)
	}

	resolver := meta.NewResolver(postgres.NewOnChainMetaStore(pool), postgres.NewOffChainMetaStore(pool))
	opts.Listener = events.NewUpdateListener(resolver, events.NewRedisPublisher(rdb), logger)

	p.processor = ingestion.NewProcessor(opts)

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	blocks := redisstore.NewBlockStore(rdb, cfg.BlockCacheTTL)
	p.client = blockcache.New(rpc, blocks, p.registry, blockcache.WithLogger(logger))

	return p, nil
}

func runLive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	stream, err := solana.NewLogStream(ctx, cfg.WSEndpoint, cfg.Program,
		solana.WithStreamLogger(logger))
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer stream.Close()

	logger.Info("indexer start",
		zap.String("rpc_endpoint", cfg.RPCEndpoint),
		zap.String("ws_endpoint", cfg.WSEndpoint),
		zap.String("program", cfg.Program),
		zap.Bool("activity_archive", cfg.ClickhouseDSN != ""),
		zap.Int("blacklisted_mints", len(cfg.BlacklistMints)),
	)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		metrics := observability.NewServer(cfg.MetricsAddr, p.registry, logger)
		g.Go(func() error { return metrics.Run(ctx) })
	}
	runner := ingestion.NewLiveRunner(stream, p.client, p.processor, logger)
	g.Go(func() error { return runner.Run(ctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("indexer stopped")
	return nil
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	fromSlot, _ := cmd.Flags().GetInt64("from-slot")
	toSlot, _ := cmd.Flags().GetInt64("to-slot")
	if fromSlot <= 0 || toSlot <= 0 {
		return fmt.Errorf("both --from-slot and --to-slot are required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	start := time.Now()
	n, err := ingestion.NewBackfill(p.client, p.processor, logger).Run(ctx, fromSlot, toSlot)
	if err != nil {
		return err
	}
	logger.Info("backfill done",
		zap.Int("transactions", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
