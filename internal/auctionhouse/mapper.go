package auctionhouse

import (
	"fmt"
	"time"

	"solana-nft-indexer/internal/domain"
)

// ErrAccountsOutOfRange reports an account list shorter than the layout of
// a matched instruction variant. It signals a decoder/account-list mismatch
// or an unsupported program version and must not be swallowed: truncating
// silently would corrupt the record stream.
var ErrAccountsOutOfRange = fmt.Errorf("auctionhouse: account list shorter than instruction layout")

// MapToRecords turns a decoded instruction and its ordered account list
// into zero or more immutable order records.
//
// Unknown instructions yield an empty list and no error. An ExecuteSale
// yields exactly two records differing only in Direction, one per side of
// the trade, because downstream consumers index the event once per side.
// The function is pure.
func MapToRecords(
	instr Instruction,
	accounts []string,
	blockTime time.Time,
	log domain.LogRef,
) ([]domain.OrderRecord, error) {
	switch in := instr.(type) {
	case Sell:
		if len(accounts) < sellMinAccounts {
			return nil, accountsErr("sell", sellMinAccounts, len(accounts))
		}
		return []domain.OrderRecord{domain.SellRecord{
			Maker:        accounts[sellAccounts.Maker],
			SellPrice:    in.Price,
			TokenAccount: accounts[sellAccounts.TokenAccount],
			// Mint stays nil: only the token account appears in the
			// instruction; the account-to-mint join runs downstream.
			Mint:         nil,
			Amount:       in.Size,
			AuctionHouse: accounts[sellAccounts.AuctionHouse],
			Log:          log,
			Timestamp:    blockTime,
		}}, nil

	case Buy:
		if len(accounts) < buyMinAccounts {
			return nil, accountsErr("buy", buyMinAccounts, len(accounts))
		}
		return []domain.OrderRecord{domain.BuyRecord{
			Maker:        accounts[buyAccounts.Maker],
			BuyPrice:     in.Price,
			TokenAccount: accounts[buyAccounts.TokenAccount],
			Mint:         nil,
			Amount:       in.Size,
			AuctionHouse: accounts[buyAccounts.AuctionHouse],
			Log:          log,
			Timestamp:    blockTime,
		}}, nil

	case ExecuteSale:
		if len(accounts) < executeSaleMinAccounts {
			return nil, accountsErr("execute_sale", executeSaleMinAccounts, len(accounts))
		}
		sell := domain.ExecuteSaleRecord{
			Buyer:        accounts[executeSaleAccounts.Buyer],
			Seller:       accounts[executeSaleAccounts.Seller],
			Price:        in.BuyerPrice,
			Mint:         accounts[executeSaleAccounts.Mint],
			TreasuryMint: accounts[executeSaleAccounts.TreasuryMint],
			Amount:       in.Size,
			AuctionHouse: accounts[executeSaleAccounts.AuctionHouse],
			Log:          log,
			Timestamp:    blockTime,
			Direction:    domain.DirectionSell,
		}
		buy := sell
		buy.Direction = domain.DirectionBuy
		return []domain.OrderRecord{sell, buy}, nil

	case Cancel:
		if len(accounts) < cancelMinAccounts {
			return nil, accountsErr("cancel", cancelMinAccounts, len(accounts))
		}
		return []domain.OrderRecord{domain.CancelRecord{
			Owner:        accounts[cancelAccounts.Owner],
			Mint:         accounts[cancelAccounts.Mint],
			Price:        in.Price,
			Amount:       in.Size,
			AuctionHouse: accounts[cancelAccounts.AuctionHouse],
			Log:          log,
			Timestamp:    blockTime,
		}}, nil
	}

	// Unknown or future variants produce no events.
	return nil, nil
}

func accountsErr(variant string, want, got int) error {
	return fmt.Errorf("%w: %s needs %d accounts, got %d", ErrAccountsOutOfRange, variant, want, got)
}
