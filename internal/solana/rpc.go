package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface consumed by the
// indexer. Transport failures propagate to callers unchanged.
type RPCClient interface {
	// GetBlock retrieves a block by slot number with the requested
	// transaction detail level.
	GetBlock(ctx context.Context, slot int64, detail DetailLevel) (*Block, error)

	// GetLatestSlot retrieves the current head slot.
	GetLatestSlot(ctx context.Context) (int64, error)

	// GetTransaction retrieves a transaction by signature. Returns
	// (nil, nil) when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
