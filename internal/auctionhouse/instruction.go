package auctionhouse

import (
	"bytes"

	"github.com/near/borsh-go"
)

// ProgramID is the Metaplex Auction House program address.
const ProgramID = "hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk"

// Instruction is a decoded auction house instruction. The set of variants
// is closed: Sell, Buy, Cancel, ExecuteSale and Unknown.
type Instruction interface {
	isInstruction()
}

// Sell lists a token for sale at a fixed price.
type Sell struct {
	Price uint64
	Size  uint64
}

// Buy places a bid on a token.
type Buy struct {
	Price uint64
	Size  uint64
}

// Cancel withdraws a previously placed sell or buy order.
type Cancel struct {
	Price uint64
	Size  uint64
}

// ExecuteSale matches a sell order with a buy order and settles the trade.
type ExecuteSale struct {
	BuyerPrice uint64
	Size       uint64
}

// Unknown is returned for any payload that does not decode to a known
// variant. Callers must treat it as "no event", never as an error.
type Unknown struct{}

func (Sell) isInstruction()        {}
func (Buy) isInstruction()         {}
func (Cancel) isInstruction()      {}
func (ExecuteSale) isInstruction() {}
func (Unknown) isInstruction()     {}

// Anchor instruction discriminators: sha256("global:<name>")[0:8].
var (
	sellDiscriminator        = []byte{51, 230, 133, 164, 1, 127, 131, 173}
	buyDiscriminator         = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	executeSaleDiscriminator = []byte{37, 74, 217, 157, 79, 49, 35, 6}
	cancelDiscriminator      = []byte{232, 219, 223, 41, 219, 236, 220, 190}
)

// Argument layouts following the discriminator. Bump seeds precede the
// price/size pair; all integers are little-endian per borsh.
type sellArgs struct {
	TradeStateBump      uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

// sellLegacyArgs is the pre-v1.1 sell encoding, recognizable by its
// shorter account list. It lacks the free trade state bump.
type sellLegacyArgs struct {
	TradeStateBump      uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type buyArgs struct {
	TradeStateBump    uint8
	EscrowPaymentBump uint8
	BuyerPrice        uint64
	TokenSize         uint64
}

type executeSaleArgs struct {
	EscrowPaymentBump   uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type cancelArgs struct {
	BuyerPrice uint64
	TokenSize  uint64
}

// Decode parses raw instruction data into a typed Instruction.
//
// Decoding is total: unrecognized discriminators, truncated payloads and
// any other malformed input yield Unknown rather than an error.
// accountCount disambiguates the legacy sell encoding, which shares the
// sell discriminator but carries a shorter account list.
func Decode(data []byte, accountCount int) Instruction {
	if len(data) < discriminatorLen {
		return Unknown{}
	}
	disc, rest := data[:discriminatorLen], data[discriminatorLen:]

	switch {
	case bytes.Equal(disc, sellDiscriminator):
		if accountCount < sellAccountCount {
			var args sellLegacyArgs
			if err := borsh.Deserialize(&args, rest); err != nil {
				return Unknown{}
			}
			return Sell{Price: args.BuyerPrice, Size: args.TokenSize}
		}
		var args sellArgs
		if err := borsh.Deserialize(&args, rest); err != nil {
			return Unknown{}
		}
		return Sell{Price: args.BuyerPrice, Size: args.TokenSize}

	case bytes.Equal(disc, buyDiscriminator):
		var args buyArgs
		if err := borsh.Deserialize(&args, rest); err != nil {
			return Unknown{}
		}
		return Buy{Price: args.BuyerPrice, Size: args.TokenSize}

	case bytes.Equal(disc, executeSaleDiscriminator):
		var args executeSaleArgs
		if err := borsh.Deserialize(&args, rest); err != nil {
			return Unknown{}
		}
		return ExecuteSale{BuyerPrice: args.BuyerPrice, Size: args.TokenSize}

	case bytes.Equal(disc, cancelDiscriminator):
		var args cancelArgs
		if err := borsh.Deserialize(&args, rest); err != nil {
			return Unknown{}
		}
		return Cancel{Price: args.BuyerPrice, Size: args.TokenSize}
	}

	return Unknown{}
}

const discriminatorLen = 8

// sellAccountCount is the account list length of the current sell
// instruction. Shorter lists select the legacy argument layout.
const sellAccountCount = 12
