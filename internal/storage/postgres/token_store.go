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

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Save upserts a token keyed by mint.
func (s *TokenStore) Save(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (mint, supply, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mint) DO UPDATE SET
			supply = EXCLUDED.supply,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		t.Mint, int64(t.Supply), t.IsDeleted, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	query := `
		SELECT mint, supply, is_deleted, created_at, updated_at
		FROM tokens
		WHERE mint = $1
	`

	t, err := scanToken(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// FindAllByUpdatedAt retrieves tokens with UpdatedAt descending, mint
// descending as tiebreaker, seeking past the cursor when present. Both
// window bounds are inclusive. Returns up to limit+1 items.
func (s *TokenStore) FindAllByUpdatedAt(ctx context.Context, from, to *time.Time, cursor *continuation.DateID, limit int) ([]*domain.Token, error) {
	query := `
		SELECT mint, supply, is_deleted, created_at, updated_at
		FROM tokens
		WHERE TRUE
	`
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
		query += fmt.Sprintf(" AND (updated_at, mint) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, mint DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		t      domain.Token
		supply int64
	)
	if err := row.Scan(&t.Mint, &supply, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Supply = uint64(supply)
	return &t, nil
}
