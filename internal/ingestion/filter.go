package ingestion

import "solana-nft-indexer/internal/domain"

// TokenFilter drops records of blacklisted token mints before they reach
// storage. Records whose mint is not resolved yet always pass; the
// downstream mint resolution step re-applies the filter once the mint is
// known.
type TokenFilter struct {
	blacklist map[string]struct{}
}

// NewTokenFilter creates a filter over the given blacklisted mints.
func NewTokenFilter(mints []string) *TokenFilter {
	blacklist := make(map[string]struct{}, len(mints))
	for _, mint := range mints {
		blacklist[mint] = struct{}{}
	}
	return &TokenFilter{blacklist: blacklist}
}

// Allow reports whether a record may enter the record stream.
func (f *TokenFilter) Allow(r domain.OrderRecord) bool {
	if len(f.blacklist) == 0 {
		return true
	}

	var mint string
	switch rec := r.(type) {
	case domain.SellRecord:
		if rec.Mint == nil {
			return true
		}
		mint = *rec.Mint
	case domain.BuyRecord:
		if rec.Mint == nil {
			return true
		}
		mint = *rec.Mint
	case domain.CancelRecord:
		mint = rec.Mint
	case domain.ExecuteSaleRecord:
		mint = rec.Mint
	default:
		return true
	}

	_, blocked := f.blacklist[mint]
	return !blocked
}
