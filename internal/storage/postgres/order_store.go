package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-nft-indexer/internal/continuation"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

const selectOrderColumns = `
	id, auction_house, maker, side, mint, token_account,
	price, amount, status, created_at, updated_at
`

// Save upserts an order keyed by Order.ID.
func (s *OrderStore) Save(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO orders (
			id, auction_house, maker, side, mint, token_account,
			price, amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			mint = EXCLUDED.mint,
			price = EXCLUDED.price,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.AuctionHouse, o.Maker, string(o.Side), o.Mint, o.TokenAccount,
		int64(o.Price), int64(o.Amount), string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// GetByID retrieves an order. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// FindAllByUpdatedAt retrieves orders with UpdatedAt descending, id
// descending as tiebreaker, seeking past the cursor when present. Both
// window bounds are inclusive. Returns up to limit+1 items.
func (s *OrderStore) FindAllByUpdatedAt(ctx context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Order, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders WHERE TRUE`
	var args []any

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND updated_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND updated_at <= $%d", len(args))
	}
	if cursor != nil {
		args = append(args, time.UnixMilli(cursor.DateMillis).UTC(), cursor.ID)
		query += fmt.Sprintf(" AND (updated_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d", len(args))

	return s.queryOrders(ctx, query, args...)
}

// FindSellOrdersByMint retrieves active sell orders for a mint with
// price ascending, id ascending as tiebreaker, seeking past the cursor
// when present. Returns up to limit+1 items.
func (s *OrderStore) FindSellOrdersByMint(ctx context.Context, mint string, cursor *continuation.PriceID, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + selectOrderColumns + `
		FROM orders
		WHERE side = 'SELL' AND status = 'ACTIVE' AND mint = $1
	`
	args := []any{mint}

	if cursor != nil {
		args = append(args, int64(cursor.Price), cursor.ID)
		query += fmt.Sprintf(" AND (price, id) > ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY price ASC, id ASC LIMIT $%d", len(args))

	return s.queryOrders(ctx, query, args...)
}

func (s *OrderStore) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o             domain.Order
		side, status  string
		price, amount int64
	)

	err := row.Scan(
		&o.ID, &o.AuctionHouse, &o.Maker, &side, &o.Mint, &o.TokenAccount,
		&price, &amount, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(status)
	o.Price = uint64(price)
	o.Amount = uint64(amount)
	return &o, nil
}
