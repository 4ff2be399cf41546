package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of a materialized order.
type OrderStatus string

// Order lifecycle states.
const (
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderSide distinguishes asks from bids.
type OrderSide string

// Order sides.
const (
	OrderSideSell OrderSide = "SELL"
	OrderSideBuy  OrderSide = "BUY"
)

// Order is the materialized current state of a marketplace order,
// folded from the order record stream outside this package.
type Order struct {
	ID           string // auctionHouse:maker:mint derived key
	AuctionHouse string
	Maker        string
	Side         OrderSide
	Mint         *string // nil until resolved for sell/buy orders
	TokenAccount string
	Price        uint64
	Amount       uint64
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderID derives the materialized order key for a maker-side record.
func OrderID(auctionHouse, maker, tokenAccount string, side OrderSide) string {
	return fmt.Sprintf("%s:%s:%s:%s", auctionHouse, maker, tokenAccount, side)
}

func recordID(log LogRef, kind string) string {
	return fmt.Sprintf("%s:%d:%s", log.TxSignature, log.InstructionIndex, kind)
}
