// Package query serves cursor-paginated reads over the materialized
// state. Services return a page of results plus the continuation for the
// next page; an empty continuation means the listing is exhausted.
package query

import (
	"context"
	"fmt"
	"time"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OrderService answers order queries.
type OrderService struct {
	orders storage.OrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders storage.OrderStore) *OrderService {
	return &OrderService{orders: orders}
}

// GetOrderByID retrieves one order. Returns storage.ErrNotFound if it
// does not exist.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders pages through orders by recency, most recently updated
// first. from and to bound UpdatedAt inclusively when non-nil.
func (s *OrderService) ListOrders(ctx context.Context, from, to *time.Time, cursorStr string, limit int) ([]*domain.Order, string, error) {
	cursor, err := continuation.ParseDateID(cursorStr)
	if err != nil {
		return nil, "", err
	}

	items, err := s.orders.FindAllByUpdatedAt(ctx, from, to, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("find orders by updated at: %w", err)
	}

	page, next := continuation.Slice(items, limit, func(o *domain.Order) continuation.DateID {
		return continuation.DateID{DateMillis: o.UpdatedAt.UnixMilli(), ID: o.ID}
	})
	return page, next, nil
}

// BestSellOrders pages through the active sell orders of a mint, best
// (lowest) price first.
func (s *OrderService) BestSellOrders(ctx context.Context, mint, cursorStr string, limit int) ([]*domain.Order, string, error) {
	cursor, err := continuation.ParsePriceID(cursorStr)
	if err != nil {
		return nil, "", err
	}

	items, err := s.orders.FindSellOrdersByMint(ctx, mint, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("find sell orders for %s: %w", mint, err)
	}

	page, next := continuation.Slice(items, limit, func(o *domain.Order) continuation.PriceID {
		return continuation.PriceID{Price: o.Price, ID: o.ID}
	})
	return page, next, nil
}
