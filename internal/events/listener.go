package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/meta"
)

// UpdateListener turns state changes into published events. Token
// updates are gated on metadata: a token whose metadata does not resolve
// yet is skipped, since consumers cannot render it. Order updates are
// published unconditionally.
type UpdateListener struct {
	resolver  *meta.Resolver
	publisher Publisher
	logger    *zap.Logger
}

// NewUpdateListener creates a new UpdateListener.
func NewUpdateListener(resolver *meta.Resolver, publisher Publisher, logger *zap.Logger) *UpdateListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateListener{resolver: resolver, publisher: publisher, logger: logger}
}

// OnTokenUpdated resolves metadata for the token and publishes a
// TokenUpdateEvent. Unresolvable metadata skips the publish without
// error; the event fires once metadata arrives and triggers another
// update.
func (l *UpdateListener) OnTokenUpdated(ctx context.Context, token *domain.Token) error {
	tokenMeta, err := l.resolver.ResolveForToken(ctx, token.Mint)
	if err != nil {
		return fmt.Errorf("resolve meta for token %s: %w", token.Mint, err)
	}
	if tokenMeta == nil {
		l.logger.Info("skip token update without resolvable meta",
			zap.String("mint", token.Mint))
		return nil
	}

	return l.publisher.PublishTokenUpdate(ctx, TokenUpdateEvent{
		Mint:      token.Mint,
		Token:     *token,
		Meta:      tokenMeta,
		UpdatedAt: token.UpdatedAt,
	})
}

// OnOrderUpdated publishes an OrderUpdateEvent.
func (l *UpdateListener) OnOrderUpdated(ctx context.Context, order *domain.Order) error {
	return l.publisher.PublishOrderUpdate(ctx, OrderUpdateEvent{
		OrderID:   order.ID,
		Order:     *order,
		UpdatedAt: order.UpdatedAt,
	})
}
