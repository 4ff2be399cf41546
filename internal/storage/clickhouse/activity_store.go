package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// TradeActivityStore implements storage.TradeActivityStore using ClickHouse.
type TradeActivityStore struct {
	conn *Conn
}

// NewTradeActivityStore creates a new TradeActivityStore.
func NewTradeActivityStore(conn *Conn) *TradeActivityStore {
	return &TradeActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeActivityStore = (*TradeActivityStore)(nil)

const activityColumns = `record_id, auction_house, buyer, seller, mint, treasury_mint,
		price, amount, direction, slot, tx_signature, instruction_index, ts`

// Archive appends executed-sale records. ReplacingMergeTree collapses
// rows with the same sorting key, so replaying a slot range is harmless.
func (s *TradeActivityStore) Archive(ctx context.Context, records []domain.ExecuteSaleRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trade_activities (`+activityColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.RecordID(), r.AuctionHouse, r.Buyer, r.Seller, r.Mint, r.TreasuryMint,
			r.Price, r.Amount, string(r.Direction),
			r.Log.Slot, r.Log.TxSignature, int32(r.Log.InstructionIndex),
			r.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// FindByMint retrieves executed sales of a mint within [from, to],
// ordered by timestamp ASC. Nil bounds leave the range open.
func (s *TradeActivityStore) FindByMint(ctx context.Context, mint string, from, to *time.Time) ([]domain.ExecuteSaleRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + activityColumns + ` FROM trade_activities FINAL WHERE mint = ?`)
	args := []any{mint}

	if from != nil {
		sb.WriteString(" AND ts >= ?")
		args = append(args, *from)
	}
	if to != nil {
		sb.WriteString(" AND ts <= ?")
		args = append(args, *to)
	}
	sb.WriteString(" ORDER BY ts ASC, record_id ASC")

	rows, err := s.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query activities by mint: %w", err)
	}
	defer rows.Close()

	var records []domain.ExecuteSaleRecord
	for rows.Next() {
		var (
			r         domain.ExecuteSaleRecord
			recordID  string
			direction string
			instrIdx  int32
		)
		err := rows.Scan(
			&recordID, &r.AuctionHouse, &r.Buyer, &r.Seller, &r.Mint, &r.TreasuryMint,
			&r.Price, &r.Amount, &direction,
			&r.Log.Slot, &r.Log.TxSignature, &instrIdx,
			&r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		r.Direction = domain.Direction(direction)
		r.Log.InstructionIndex = int(instrIdx)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return records, nil
}
