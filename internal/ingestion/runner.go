package ingestion

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solana-nft-indexer/internal/solana"
)

// LiveRunner drives the processor from a WebSocket log subscription.
// For every program mention it fetches the full transaction over RPC
// and processes it. Failed transactions are skipped at the notification
// level already; transactions the RPC node does not know yet are logged
// and dropped, they reappear in the next backfill run.
type LiveRunner struct {
	source    solana.LogSource
	client    solana.RPCClient
	processor *Processor
	logger    *zap.Logger
}

// NewLiveRunner creates a new LiveRunner.
func NewLiveRunner(source solana.LogSource, client solana.RPCClient, processor *Processor, logger *zap.Logger) *LiveRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveRunner{source: source, client: client, processor: processor, logger: logger}
}

// Run consumes log notifications until the context is cancelled or the
// subscription closes.
func (r *LiveRunner) Run(ctx context.Context) error {
	r.logger.Info("live ingestion started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("live ingestion stopping")
			return ctx.Err()

		case notif, ok := <-r.source.Logs():
			if !ok {
				return errors.New("log subscription closed")
			}
			if notif.Err != nil {
				continue
			}
			r.handle(ctx, notif)
		}
	}
}

func (r *LiveRunner) handle(ctx context.Context, notif solana.LogNotification) {
	tx, err := r.client.GetTransaction(ctx, notif.Signature)
	if err != nil {
		r.logger.Warn("fetch transaction failed",
			zap.String("signature", notif.Signature),
			zap.Error(err))
		return
	}
	if tx == nil {
		r.logger.Debug("transaction not known yet",
			zap.String("signature", notif.Signature))
		return
	}

	n, err := r.processor.ProcessTransaction(ctx, tx)
	if err != nil {
		r.logger.Error("process transaction failed",
			zap.String("signature", notif.Signature),
			zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("processed transaction",
			zap.String("signature", notif.Signature),
			zap.Int64("slot", tx.Slot),
			zap.Int("records", n))
	}
}
