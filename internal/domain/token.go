package domain

import "time"

// Token is the materialized state of a mint tracked by the indexer.
type Token struct {
	Mint      string
	Supply    uint64
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenWithMeta pairs a token with its resolved metadata, when available.
type TokenWithMeta struct {
	Token Token
	Meta  *TokenMeta
}
