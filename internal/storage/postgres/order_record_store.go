package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OrderRecordStore implements storage.OrderRecordStore using PostgreSQL.
// The closed record variants share one table, discriminated by kind.
type OrderRecordStore struct {
	pool *Pool
}

// NewOrderRecordStore creates a new OrderRecordStore.
func NewOrderRecordStore(pool *Pool) *OrderRecordStore {
	return &OrderRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderRecordStore = (*OrderRecordStore)(nil)

// Record kind discriminators.
const (
	kindSell        = "sell"
	kindBuy         = "buy"
	kindCancel      = "cancel"
	kindExecuteSale = "execute_sale"
)

const insertRecordQuery = `
	INSERT INTO order_records (
		record_id, kind, auction_house,
		maker, buyer, seller, owner_address,
		token_account, mint, treasury_mint,
		price, amount, direction,
		slot, tx_signature, instruction_index, ts
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7,
		$8, $9, $10,
		$11, $12, $13,
		$14, $15, $16, $17
	)
`

const selectRecordColumns = `
	record_id, kind, auction_house,
	maker, buyer, seller, owner_address,
	token_account, mint, treasury_mint,
	price, amount, direction,
	slot, tx_signature, instruction_index, ts
`

// Insert appends a record. Returns ErrDuplicateKey if its RecordID exists.
func (s *OrderRecordStore) Insert(ctx context.Context, r domain.OrderRecord) error {
	args, err := recordArgs(r)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, insertRecordQuery, args...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert order record: %w", err)
	}
	return nil
}

// InsertBulk appends multiple records, skipping duplicates.
func (s *OrderRecordStore) InsertBulk(ctx context.Context, records []domain.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := insertRecordQuery + " ON CONFLICT (record_id) DO NOTHING"
	for _, r := range records {
		args, err := recordArgs(r)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert order record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByAuctionHouse retrieves records of one auction house ordered by
// timestamp ASC, record id as tiebreaker.
func (s *OrderRecordStore) GetByAuctionHouse(ctx context.Context, auctionHouse string) ([]domain.OrderRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM order_records
		WHERE auction_house = $1
		ORDER BY ts ASC, record_id ASC
	`

	rows, err := s.pool.Query(ctx, query, auctionHouse)
	if err != nil {
		return nil, fmt.Errorf("query order records: %w", err)
	}
	defer rows.Close()

	var records []domain.OrderRecord
	for rows.Next() {
		r, err := scanOrderRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order records: %w", err)
	}
	return records, nil
}

func recordArgs(r domain.OrderRecord) ([]any, error) {
	switch rec := r.(type) {
	case domain.SellRecord:
		return []any{
			rec.RecordID(), kindSell, rec.AuctionHouse,
			&rec.Maker, nil, nil, nil,
			&rec.TokenAccount, rec.Mint, nil,
			int64(rec.SellPrice), int64(rec.Amount), nil,
			rec.Log.Slot, rec.Log.TxSignature, rec.Log.InstructionIndex, rec.Timestamp,
		}, nil
	case domain.BuyRecord:
		return []any{
			rec.RecordID(), kindBuy, rec.AuctionHouse,
			&rec.Maker, nil, nil, nil,
			&rec.TokenAccount, rec.Mint, nil,
			int64(rec.BuyPrice), int64(rec.Amount), nil,
			rec.Log.Slot, rec.Log.TxSignature, rec.Log.InstructionIndex, rec.Timestamp,
		}, nil
	case domain.CancelRecord:
		return []any{
			rec.RecordID(), kindCancel, rec.AuctionHouse,
			nil, nil, nil, &rec.Owner,
			nil, &rec.Mint, nil,
			int64(rec.Price), int64(rec.Amount), nil,
			rec.Log.Slot, rec.Log.TxSignature, rec.Log.InstructionIndex, rec.Timestamp,
		}, nil
	case domain.ExecuteSaleRecord:
		direction := string(rec.Direction)
		return []any{
			rec.RecordID(), kindExecuteSale, rec.AuctionHouse,
			nil, &rec.Buyer, &rec.Seller, nil,
			nil, &rec.Mint, &rec.TreasuryMint,
			int64(rec.Price), int64(rec.Amount), &direction,
			rec.Log.Slot, rec.Log.TxSignature, rec.Log.InstructionIndex, rec.Timestamp,
		}, nil
	default:
		return nil, storage.ErrInvalidInput
	}
}

func scanOrderRecord(row pgx.Row) (domain.OrderRecord, error) {
	var (
		recordID, kind, house        string
		maker, buyer, seller, owner  *string
		tokenAccount, mint, treasury *string
		price, amount, slot          int64
		direction                    *string
		txSignature                  string
		instructionIndex             int
		ts                           time.Time
	)

	err := row.Scan(
		&recordID, &kind, &house,
		&maker, &buyer, &seller, &owner,
		&tokenAccount, &mint, &treasury,
		&price, &amount, &direction,
		&slot, &txSignature, &instructionIndex, &ts,
	)
	if err != nil {
		return nil, fmt.Errorf("scan order record: %w", err)
	}

	log := domain.LogRef{Slot: slot, TxSignature: txSignature, InstructionIndex: instructionIndex}

	switch kind {
	case kindSell:
		return domain.SellRecord{
			Maker:        deref(maker),
			SellPrice:    uint64(price),
			TokenAccount: deref(tokenAccount),
			Mint:         mint,
			Amount:       uint64(amount),
			AuctionHouse: house,
			Log:          log,
			Timestamp:    ts,
		}, nil
	case kindBuy:
		return domain.BuyRecord{
			Maker:        deref(maker),
			BuyPrice:     uint64(price),
			TokenAccount: deref(tokenAccount),
			Mint:         mint,
			Amount:       uint64(amount),
			AuctionHouse: house,
			Log:          log,
			Timestamp:    ts,
		}, nil
	case kindCancel:
		return domain.CancelRecord{
			Owner:        deref(owner),
			Mint:         deref(mint),
			Price:        uint64(price),
			Amount:       uint64(amount),
			AuctionHouse: house,
			Log:          log,
			Timestamp:    ts,
		}, nil
	case kindExecuteSale:
		return domain.ExecuteSaleRecord{
			Buyer:        deref(buyer),
			Seller:       deref(seller),
			Price:        uint64(price),
			Mint:         deref(mint),
			TreasuryMint: deref(treasury),
			Amount:       uint64(amount),
			AuctionHouse: house,
			Log:          log,
			Timestamp:    ts,
			Direction:    domain.Direction(deref(direction)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown order record kind %q for %s", kind, recordID)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
