package auctionhouse

// Account-index layout of each instruction variant. The position of an
// account in the instruction's account list carries its semantic role;
// these tables are the program's ABI contract and are kept in one place
// so the contract stays auditable.

type sellAccountLayout struct {
	Maker        int
	TokenAccount int
	AuctionHouse int
}

type buyAccountLayout struct {
	Maker        int
	TokenAccount int
	AuctionHouse int
}

type executeSaleAccountLayout struct {
	Buyer        int
	Seller       int
	TokenAccount int
	Mint         int
	TreasuryMint int
	AuctionHouse int
}

type cancelAccountLayout struct {
	Owner        int
	TokenAccount int
	Mint         int
	AuctionHouse int
}

var (
	sellAccounts        = sellAccountLayout{Maker: 0, TokenAccount: 1, AuctionHouse: 4}
	buyAccounts         = buyAccountLayout{Maker: 0, TokenAccount: 4, AuctionHouse: 8}
	executeSaleAccounts = executeSaleAccountLayout{Buyer: 0, Seller: 1, TokenAccount: 2, Mint: 3, TreasuryMint: 5, AuctionHouse: 10}
	cancelAccounts      = cancelAccountLayout{Owner: 0, TokenAccount: 1, Mint: 2, AuctionHouse: 4}
)

// CancelTokenAccount returns the token account a cancel instruction
// references. The mapped CancelRecord intentionally drops it; order
// state folding still needs it to address the cancelled order.
func CancelTokenAccount(accounts []string) string {
	if len(accounts) <= cancelAccounts.TokenAccount {
		return ""
	}
	return accounts[cancelAccounts.TokenAccount]
}

// ExecuteSaleTokenAccount returns the token account an execute-sale
// instruction references, for the same folding purpose.
func ExecuteSaleTokenAccount(accounts []string) string {
	if len(accounts) <= executeSaleAccounts.TokenAccount {
		return ""
	}
	return accounts[executeSaleAccounts.TokenAccount]
}

// Highest index each variant dereferences; the account list must be at
// least one longer.
const (
	sellMinAccounts        = 5
	buyMinAccounts         = 9
	executeSaleMinAccounts = 11
	cancelMinAccounts      = 5
)
