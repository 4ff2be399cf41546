// Package ingestion turns raw Solana transactions into order records and
// materialized order, token and activity state.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"solana-nft-indexer/internal/auctionhouse"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/events"
	"solana-nft-indexer/internal/solana"
	"solana-nft-indexer/internal/storage"
)

// Processor folds auction house instructions of confirmed transactions
// into the record stream and the materialized stores. All writes are
// idempotent, so replaying a slot range is safe.
type Processor struct {
	records    storage.OrderRecordStore
	orders     storage.OrderStore
	tokens     storage.TokenStore
	activities storage.TradeActivityStore
	listener   *events.UpdateListener
	filter     *TokenFilter
	logger     *zap.Logger

	txSeen          prometheus.Counter
	recordsIngested *prometheus.CounterVec
}

// ProcessorOptions contains the collaborators of a Processor. Records and
// Orders are required; the remaining stores and the listener are optional
// and skipped when nil.
type ProcessorOptions struct {
	Records    storage.OrderRecordStore
	Orders     storage.OrderStore
	Tokens     storage.TokenStore
	Activities storage.TradeActivityStore
	Listener   *events.UpdateListener
	Filter     *TokenFilter
	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// NewProcessor creates a new Processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	filter := opts.Filter
	if filter == nil {
		filter = NewTokenFilter(nil)
	}

	factory := promauto.With(opts.Registerer)
	return &Processor{
		records:    opts.Records,
		orders:     opts.Orders,
		tokens:     opts.Tokens,
		activities: opts.Activities,
		listener:   opts.Listener,
		filter:     filter,
		logger:     logger,
		txSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "indexer_transactions_total",
			Help: "Transactions inspected for auction house instructions.",
		}),
		recordsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_records_total",
			Help: "Order records ingested, by record kind.",
		}, []string{"kind"}),
	}
}

// ProcessBlock runs every transaction of a block through the processor.
// Returns the number of records ingested.
func (p *Processor) ProcessBlock(ctx context.Context, block *solana.Block) (int, error) {
	total := 0
	for i := range block.Transactions {
		n, err := p.ProcessTransaction(ctx, &block.Transactions[i])
		if err != nil {
			return total, fmt.Errorf("process tx %s: %w", block.Transactions[i].Signature, err)
		}
		total += n
	}
	return total, nil
}

// ProcessTransaction decodes the auction house instructions of one
// transaction, appends the mapped records and folds them into order and
// token state. Failed transactions are skipped. Returns the number of
// records ingested.
func (p *Processor) ProcessTransaction(ctx context.Context, tx *solana.Transaction) (int, error) {
	p.txSeen.Inc()

	if tx.Message == nil {
		return 0, nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return 0, nil
	}

	blockTime := time.Unix(tx.BlockTime, 0).UTC()
	total := 0

	for i, in := range tx.Message.Instructions {
		if tx.Message.ProgramID(in) != auctionhouse.ProgramID {
			continue
		}

		data, err := base58.Decode(in.Data)
		if err != nil {
			// Treated like an unknown instruction: the decoder is total
			// and a payload that is not even base58 cannot carry events.
			p.logger.Warn("undecodable instruction payload",
				zap.String("signature", tx.Signature),
				zap.Int("instruction", i))
			continue
		}

		accounts := tx.Message.AccountList(in)
		instr := auctionhouse.Decode(data, len(accounts))

		logRef := domain.LogRef{
			Slot:             tx.Slot,
			TxSignature:      tx.Signature,
			InstructionIndex: i,
		}
		recs, err := auctionhouse.MapToRecords(instr, accounts, blockTime, logRef)
		if err != nil {
			return total, fmt.Errorf("map instruction %d: %w", i, err)
		}

		kept := recs[:0]
		for _, rec := range recs {
			if p.filter.Allow(rec) {
				kept = append(kept, rec)
			}
		}
		if len(kept) == 0 {
			continue
		}

		if err := p.records.InsertBulk(ctx, kept); err != nil {
			return total, fmt.Errorf("insert records: %w", err)
		}
		for _, rec := range kept {
			p.recordsIngested.WithLabelValues(recordKind(rec)).Inc()
		}

		if err := p.fold(ctx, instr, accounts, kept); err != nil {
			return total, fmt.Errorf("fold instruction %d: %w", i, err)
		}
		total += len(kept)
	}

	return total, nil
}

// fold applies the state transitions of one decoded instruction to the
// materialized stores.
func (p *Processor) fold(ctx context.Context, instr auctionhouse.Instruction, accounts []string, recs []domain.OrderRecord) error {
	switch instr.(type) {
	case auctionhouse.Sell:
		rec := recs[0].(domain.SellRecord)
		return p.upsertMakerOrder(ctx, makerOrder{
			auctionHouse: rec.AuctionHouse,
			maker:        rec.Maker,
			side:         domain.OrderSideSell,
			tokenAccount: rec.TokenAccount,
			price:        rec.SellPrice,
			amount:       rec.Amount,
			timestamp:    rec.Timestamp,
		})

	case auctionhouse.Buy:
		rec := recs[0].(domain.BuyRecord)
		return p.upsertMakerOrder(ctx, makerOrder{
			auctionHouse: rec.AuctionHouse,
			maker:        rec.Maker,
			side:         domain.OrderSideBuy,
			tokenAccount: rec.TokenAccount,
			price:        rec.BuyPrice,
			amount:       rec.Amount,
			timestamp:    rec.Timestamp,
		})

	case auctionhouse.Cancel:
		rec := recs[0].(domain.CancelRecord)
		return p.cancelOrders(ctx, rec, auctionhouse.CancelTokenAccount(accounts))

	case auctionhouse.ExecuteSale:
		// Both directions describe the same settlement; fold it once.
		rec := recs[0].(domain.ExecuteSaleRecord)
		return p.settleSale(ctx, rec, auctionhouse.ExecuteSaleTokenAccount(accounts), recs)
	}
	return nil
}

type makerOrder struct {
	auctionHouse string
	maker        string
	side         domain.OrderSide
	tokenAccount string
	price        uint64
	amount       uint64
	timestamp    time.Time
}

func (p *Processor) upsertMakerOrder(ctx context.Context, m makerOrder) error {
	id := domain.OrderID(m.auctionHouse, m.maker, m.tokenAccount, m.side)

	existing, err := p.orders.GetByID(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load order %s: %w", id, err)
	}

	order := domain.Order{
		ID:           id,
		AuctionHouse: m.auctionHouse,
		Maker:        m.maker,
		Side:         m.side,
		TokenAccount: m.tokenAccount,
		Price:        m.price,
		Amount:       m.amount,
		Status:       domain.OrderStatusActive,
		CreatedAt:    m.timestamp,
		UpdatedAt:    m.timestamp,
	}
	if existing != nil {
		if existing.UpdatedAt.After(m.timestamp) {
			return nil
		}
		order.CreatedAt = existing.CreatedAt
		order.Mint = existing.Mint
	}

	return p.saveOrder(ctx, &order)
}

// cancelOrders closes the maker orders a cancel instruction refers to.
// The instruction does not say which side it cancels, so both candidate
// orders are checked; only a live order at the cancelled price matches.
func (p *Processor) cancelOrders(ctx context.Context, rec domain.CancelRecord, tokenAccount string) error {
	for _, side := range []domain.OrderSide{domain.OrderSideSell, domain.OrderSideBuy} {
		id := domain.OrderID(rec.AuctionHouse, rec.Owner, tokenAccount, side)
		order, err := p.orders.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load order %s: %w", id, err)
		}
		if order.Status != domain.OrderStatusActive || order.Price != rec.Price {
			continue
		}
		if order.UpdatedAt.After(rec.Timestamp) {
			continue
		}

		order.Status = domain.OrderStatusCancelled
		order.Mint = &rec.Mint
		order.UpdatedAt = rec.Timestamp
		if err := p.saveOrder(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

// settleSale marks the matched maker orders filled, archives the trade
// and refreshes token state.
func (p *Processor) settleSale(ctx context.Context, rec domain.ExecuteSaleRecord, tokenAccount string, recs []domain.OrderRecord) error {
	sides := []struct {
		maker string
		side  domain.OrderSide
	}{
		{rec.Seller, domain.OrderSideSell},
		{rec.Buyer, domain.OrderSideBuy},
	}
	for _, s := range sides {
		id := domain.OrderID(rec.AuctionHouse, s.maker, tokenAccount, s.side)
		order, err := p.orders.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load order %s: %w", id, err)
		}
		if order.UpdatedAt.After(rec.Timestamp) {
			continue
		}

		order.Status = domain.OrderStatusFilled
		order.Mint = &rec.Mint
		order.UpdatedAt = rec.Timestamp
		if err := p.saveOrder(ctx, order); err != nil {
			return err
		}
	}

	if p.activities != nil {
		sales := make([]domain.ExecuteSaleRecord, 0, len(recs))
		for _, r := range recs {
			if sale, ok := r.(domain.ExecuteSaleRecord); ok {
				sales = append(sales, sale)
			}
		}
		if err := p.activities.Archive(ctx, sales); err != nil {
			return fmt.Errorf("archive sales: %w", err)
		}
	}

	return p.touchToken(ctx, rec.Mint, rec.Amount, rec.Timestamp)
}

func (p *Processor) saveOrder(ctx context.Context, order *domain.Order) error {
	if err := p.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	if p.listener != nil {
		if err := p.listener.OnOrderUpdated(ctx, order); err != nil {
			return fmt.Errorf("notify order %s: %w", order.ID, err)
		}
	}
	return nil
}

// touchToken upserts the traded token and notifies listeners.
func (p *Processor) touchToken(ctx context.Context, mint string, amount uint64, ts time.Time) error {
	if p.tokens == nil {
		return nil
	}

	token, err := p.tokens.GetByMint(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		token = &domain.Token{Mint: mint, Supply: amount, CreatedAt: ts}
	} else if err != nil {
		return fmt.Errorf("load token %s: %w", mint, err)
	}
	if token.UpdatedAt.After(ts) {
		return nil
	}
	token.UpdatedAt = ts

	if err := p.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("save token %s: %w", mint, err)
	}
	if p.listener != nil {
		if err := p.listener.OnTokenUpdated(ctx, token); err != nil {
			return fmt.Errorf("notify token %s: %w", mint, err)
		}
	}
	return nil
}

func recordKind(r domain.OrderRecord) string {
	switch rec := r.(type) {
	case domain.SellRecord:
		return "sell"
	case domain.BuyRecord:
		return "buy"
	case domain.CancelRecord:
		return "cancel"
	case domain.ExecuteSaleRecord:
		return "execute_sale_" + string(rec.Direction)
	}
	return "unknown"
}
