// Package events publishes update notifications for downstream
// consumers whenever indexed state changes.
package events

import (
	"context"
	"time"

	"solana-nft-indexer/internal/domain"
)

// TokenUpdateEvent notifies that a token and its resolved metadata
// changed. Meta is always non-nil: updates without resolvable metadata
// are not published.
type TokenUpdateEvent struct {
	Mint      string            `json:"mint"`
	Token     domain.Token      `json:"token"`
	Meta      *domain.TokenMeta `json:"meta"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// OrderUpdateEvent notifies that a materialized order changed.
type OrderUpdateEvent struct {
	OrderID   string       `json:"orderId"`
	Order     domain.Order `json:"order"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Publisher delivers update events to subscribers.
type Publisher interface {
	PublishTokenUpdate(ctx context.Context, ev TokenUpdateEvent) error
	PublishOrderUpdate(ctx context.Context, ev OrderUpdateEvent) error
}
