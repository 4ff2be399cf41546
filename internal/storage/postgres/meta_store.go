package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OnChainMetaStore implements storage.OnChainMetaStore using PostgreSQL.
type OnChainMetaStore struct {
	pool *Pool
}

// NewOnChainMetaStore creates a new OnChainMetaStore.
func NewOnChainMetaStore(pool *Pool) *OnChainMetaStore {
	return &OnChainMetaStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OnChainMetaStore = (*OnChainMetaStore)(nil)

// Save upserts metadata keyed by token address.
func (s *OnChainMetaStore) Save(ctx context.Context, m *domain.OnChainMeta) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	creators, err := encodeCreators(m.Fields.Creators)
	if err != nil {
		return err
	}
	collAddr, collVerified := collectionColumns(m.Fields.Collection)

	query := `
		INSERT INTO onchain_meta (
			token_address, meta_address, name, symbol, uri, seller_fee_bps,
			creators, collection_address, collection_verified, is_mutable, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (token_address) DO UPDATE SET
			meta_address = EXCLUDED.meta_address,
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			uri = EXCLUDED.uri,
			seller_fee_bps = EXCLUDED.seller_fee_bps,
			creators = EXCLUDED.creators,
			collection_address = EXCLUDED.collection_address,
			collection_verified = EXCLUDED.collection_verified,
			is_mutable = EXCLUDED.is_mutable,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		m.TokenAddress, m.MetaAddress, m.Fields.Name, m.Fields.Symbol, m.Fields.URI,
		m.Fields.SellerFeeBasisPoints, creators, collAddr, collVerified,
		m.IsMutable, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save onchain meta: %w", err)
	}
	return nil
}

// FindByTokenAddress retrieves metadata for one token; nil result (with
// nil error) when absent.
func (s *OnChainMetaStore) FindByTokenAddress(ctx context.Context, tokenAddress string) (*domain.OnChainMeta, error) {
	query := `
		SELECT token_address, meta_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, is_mutable, updated_at
		FROM onchain_meta
		WHERE token_address = $1
	`

	m, err := scanOnChainMeta(s.pool.QueryRow(ctx, query, tokenAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find onchain meta: %w", err)
	}
	return m, nil
}

// FindByTokenAddresses retrieves metadata for the given tokens, omitting
// absent ones.
func (s *OnChainMetaStore) FindByTokenAddresses(ctx context.Context, tokenAddresses []string) ([]*domain.OnChainMeta, error) {
	if len(tokenAddresses) == 0 {
		return nil, nil
	}

	query := `
		SELECT token_address, meta_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, is_mutable, updated_at
		FROM onchain_meta
		WHERE token_address = ANY($1)
		ORDER BY token_address ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddresses)
	if err != nil {
		return nil, fmt.Errorf("query onchain meta: %w", err)
	}
	defer rows.Close()

	return collectOnChainMeta(rows)
}

// FindByCollection retrieves metadata of a collection ordered by token
// address ASC, starting after fromTokenAddress when non-empty.
func (s *OnChainMetaStore) FindByCollection(ctx context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OnChainMeta, error) {
	query := `
		SELECT token_address, meta_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, is_mutable, updated_at
		FROM onchain_meta
		WHERE collection_address = $1 AND token_address > $2
		ORDER BY token_address ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, collection, fromTokenAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("query onchain meta by collection: %w", err)
	}
	defer rows.Close()

	return collectOnChainMeta(rows)
}

func collectOnChainMeta(rows pgx.Rows) ([]*domain.OnChainMeta, error) {
	var out []*domain.OnChainMeta
	for rows.Next() {
		m, err := scanOnChainMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan onchain meta: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate onchain meta: %w", err)
	}
	return out, nil
}

func scanOnChainMeta(row pgx.Row) (*domain.OnChainMeta, error) {
	var (
		m            domain.OnChainMeta
		creators     []byte
		collAddr     *string
		collVerified bool
	)

	err := row.Scan(
		&m.TokenAddress, &m.MetaAddress, &m.Fields.Name, &m.Fields.Symbol,
		&m.Fields.URI, &m.Fields.SellerFeeBasisPoints,
		&creators, &collAddr, &collVerified, &m.IsMutable, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Fields.Creators, err = decodeCreators(creators)
	if err != nil {
		return nil, err
	}
	m.Fields.Collection = collectionFromColumns(collAddr, collVerified)
	return &m, nil
}

// OffChainMetaStore implements storage.OffChainMetaStore using PostgreSQL.
type OffChainMetaStore struct {
	pool *Pool
}

// NewOffChainMetaStore creates a new OffChainMetaStore.
func NewOffChainMetaStore(pool *Pool) *OffChainMetaStore {
	return &OffChainMetaStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OffChainMetaStore = (*OffChainMetaStore)(nil)

// Save upserts metadata keyed by token address.
func (s *OffChainMetaStore) Save(ctx context.Context, m *domain.OffChainMeta) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	creators, err := encodeCreators(m.Fields.Creators)
	if err != nil {
		return err
	}
	collAddr, collVerified := collectionColumns(m.Fields.Collection)

	query := `
		INSERT INTO offchain_meta (
			token_address, name, symbol, uri, seller_fee_bps,
			creators, collection_address, collection_verified, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (token_address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			uri = EXCLUDED.uri,
			seller_fee_bps = EXCLUDED.seller_fee_bps,
			creators = EXCLUDED.creators,
			collection_address = EXCLUDED.collection_address,
			collection_verified = EXCLUDED.collection_verified,
			loaded_at = EXCLUDED.loaded_at
	`

	_, err = s.pool.Exec(ctx, query,
		m.TokenAddress, m.Fields.Name, m.Fields.Symbol, m.Fields.URI,
		m.Fields.SellerFeeBasisPoints, creators, collAddr, collVerified, m.LoadedAt,
	)
	if err != nil {
		return fmt.Errorf("save offchain meta: %w", err)
	}
	return nil
}

// FindByTokenAddress retrieves metadata for one token; nil result (with
// nil error) when absent.
func (s *OffChainMetaStore) FindByTokenAddress(ctx context.Context, tokenAddress string) (*domain.OffChainMeta, error) {
	query := `
		SELECT token_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, loaded_at
		FROM offchain_meta
		WHERE token_address = $1
	`

	m, err := scanOffChainMeta(s.pool.QueryRow(ctx, query, tokenAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find offchain meta: %w", err)
	}
	return m, nil
}

// FindByTokenAddresses retrieves metadata for the given tokens, omitting
// absent ones.
func (s *OffChainMetaStore) FindByTokenAddresses(ctx context.Context, tokenAddresses []string) ([]*domain.OffChainMeta, error) {
	if len(tokenAddresses) == 0 {
		return nil, nil
	}

	query := `
		SELECT token_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, loaded_at
		FROM offchain_meta
		WHERE token_address = ANY($1)
		ORDER BY token_address ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddresses)
	if err != nil {
		return nil, fmt.Errorf("query offchain meta: %w", err)
	}
	defer rows.Close()

	return collectOffChainMeta(rows)
}

// FindByCollection retrieves metadata of a collection ordered by token
// address ASC, starting after fromTokenAddress when non-empty.
func (s *OffChainMetaStore) FindByCollection(ctx context.Context, collection, fromTokenAddress string, limit int) ([]*domain.OffChainMeta, error) {
	query := `
		SELECT token_address, name, symbol, uri, seller_fee_bps,
		       creators, collection_address, collection_verified, loaded_at
		FROM offchain_meta
		WHERE collection_address = $1 AND token_address > $2
		ORDER BY token_address ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, collection, fromTokenAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("query offchain meta by collection: %w", err)
	}
	defer rows.Close()

	return collectOffChainMeta(rows)
}

func collectOffChainMeta(rows pgx.Rows) ([]*domain.OffChainMeta, error) {
	var out []*domain.OffChainMeta
	for rows.Next() {
		m, err := scanOffChainMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offchain meta: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offchain meta: %w", err)
	}
	return out, nil
}

func scanOffChainMeta(row pgx.Row) (*domain.OffChainMeta, error) {
	var (
		m            domain.OffChainMeta
		creators     []byte
		collAddr     *string
		collVerified bool
	)

	err := row.Scan(
		&m.TokenAddress, &m.Fields.Name, &m.Fields.Symbol, &m.Fields.URI,
		&m.Fields.SellerFeeBasisPoints,
		&creators, &collAddr, &collVerified, &m.LoadedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Fields.Creators, err = decodeCreators(creators)
	if err != nil {
		return nil, err
	}
	m.Fields.Collection = collectionFromColumns(collAddr, collVerified)
	return &m, nil
}

func encodeCreators(creators []domain.MetaCreator) ([]byte, error) {
	if len(creators) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(creators)
	if err != nil {
		return nil, fmt.Errorf("encode creators: %w", err)
	}
	return data, nil
}

func decodeCreators(data []byte) ([]domain.MetaCreator, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var creators []domain.MetaCreator
	if err := json.Unmarshal(data, &creators); err != nil {
		return nil, fmt.Errorf("decode creators: %w", err)
	}
	return creators, nil
}

func collectionColumns(c *domain.MetaCollection) (*string, bool) {
	if c == nil {
		return nil, false
	}
	return &c.Address, c.Verified
}

func collectionFromColumns(addr *string, verified bool) *domain.MetaCollection {
	if addr == nil {
		return nil
	}
	return &domain.MetaCollection{Address: *addr, Verified: verified}
}
