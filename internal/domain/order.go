package domain

import "time"

// Direction marks which side of an executed sale a record represents.
type Direction string

// Execute-sale directions.
const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// OrderRecord is one entry of the append-only auction house order stream.
// Records are immutable once created; materialized order state is a fold
// over this stream.
//
// The set of implementations is closed: SellRecord, BuyRecord,
// CancelRecord and ExecuteSaleRecord.
type OrderRecord interface {
	// RecordID returns a deterministic identity for deduplication,
	// derived from the raw log position.
	RecordID() string

	// AuctionHouseAddress returns the auction house program instance
	// the record belongs to.
	AuctionHouseAddress() string

	// RecordTimestamp returns the block timestamp of the record.
	RecordTimestamp() time.Time

	orderRecord()
}

// LogRef identifies the on-chain position of an instruction log.
type LogRef struct {
	Slot             int64
	TxSignature      string
	InstructionIndex int
}

// SellRecord is emitted for an auction house sell (ask) instruction.
// Mint is nil until the token-account to mint join resolves it downstream.
type SellRecord struct {
	Maker        string
	SellPrice    uint64
	TokenAccount string
	Mint         *string
	Amount       uint64
	AuctionHouse string
	Log          LogRef
	Timestamp    time.Time
}

// BuyRecord is emitted for an auction house buy (bid) instruction.
// Mint is nil until the token-account to mint join resolves it downstream.
type BuyRecord struct {
	Maker        string
	BuyPrice     uint64
	TokenAccount string
	Mint         *string
	Amount       uint64
	AuctionHouse string
	Log          LogRef
	Timestamp    time.Time
}

// CancelRecord is emitted for an auction house cancel instruction.
type CancelRecord struct {
	Owner        string
	Mint         string
	Price        uint64
	Amount       uint64
	AuctionHouse string
	Log          LogRef
	Timestamp    time.Time
}

// ExecuteSaleRecord is emitted for an auction house execute-sale
// instruction. A single instruction yields exactly two records, identical
// except for Direction, one per side of the trade.
type ExecuteSaleRecord struct {
	Buyer        string
	Seller       string
	Price        uint64
	Mint         string
	TreasuryMint string
	Amount       uint64
	AuctionHouse string
	Log          LogRef
	Timestamp    time.Time
	Direction    Direction
}

func (r SellRecord) orderRecord()        {}
func (r BuyRecord) orderRecord()         {}
func (r CancelRecord) orderRecord()      {}
func (r ExecuteSaleRecord) orderRecord() {}

func (r SellRecord) AuctionHouseAddress() string        { return r.AuctionHouse }
func (r BuyRecord) AuctionHouseAddress() string         { return r.AuctionHouse }
func (r CancelRecord) AuctionHouseAddress() string      { return r.AuctionHouse }
func (r ExecuteSaleRecord) AuctionHouseAddress() string { return r.AuctionHouse }

func (r SellRecord) RecordTimestamp() time.Time        { return r.Timestamp }
func (r BuyRecord) RecordTimestamp() time.Time         { return r.Timestamp }
func (r CancelRecord) RecordTimestamp() time.Time      { return r.Timestamp }
func (r ExecuteSaleRecord) RecordTimestamp() time.Time { return r.Timestamp }

func (r SellRecord) RecordID() string   { return recordID(r.Log, "sell") }
func (r BuyRecord) RecordID() string    { return recordID(r.Log, "buy") }
func (r CancelRecord) RecordID() string { return recordID(r.Log, "cancel") }
func (r ExecuteSaleRecord) RecordID() string {
	return recordID(r.Log, "execute_sale:"+string(r.Direction))
}
