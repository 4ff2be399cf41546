package domain

import "time"

// MetaCreator is one royalty recipient declared in token metadata.
type MetaCreator struct {
	Address string
	Share   int // percentage points, 0..100
}

// MetaCollection references the collection a token belongs to.
type MetaCollection struct {
	Address  string
	Verified bool
}

// MetaFields is the common shape of token metadata. The on-chain account
// and the off-chain JSON referenced by URI both reduce to this shape.
type MetaFields struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints int
	Creators             []MetaCreator
	Collection           *MetaCollection
}

// OnChainMeta is the metadata account stored on-chain for a token.
type OnChainMeta struct {
	MetaAddress  string
	TokenAddress string
	Fields       MetaFields
	IsMutable    bool
	UpdatedAt    time.Time
}

// OffChainMeta is the metadata loaded from the URI target of the on-chain
// account. It arrives independently of OnChainMeta and may be absent.
type OffChainMeta struct {
	TokenAddress string
	Fields       MetaFields
	LoadedAt     time.Time
}

// TokenMeta is the merged, display-ready metadata of a token. It exists
// only for tokens with an on-chain metadata account.
type TokenMeta struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints int
	Creators             []MetaCreator
	Collection           *MetaCollection
}
