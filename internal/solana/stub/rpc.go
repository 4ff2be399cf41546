// Package stub provides in-memory fakes of the Solana RPC interfaces
// for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-nft-indexer/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu           sync.Mutex
	Transactions map[string]*solana.Transaction
	Blocks       map[int64]*solana.Block
	Head         int64

	// Err simulates a transport failure: when set, every call returns it.
	Err error

	// BlockCalls counts GetBlock invocations per slot.
	BlockCalls map[int64]int
	// HeadCalls counts GetLatestSlot invocations.
	HeadCalls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Blocks:       make(map[int64]*solana.Block),
		BlockCalls:   make(map[int64]int),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetTransaction retrieves a transaction by signature from the stub
// store. Unknown signatures resolve to (nil, nil) like a live node.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// GetBlock retrieves a block by slot from the stub store. The detail
// level is honored the way a node honors it: none strips transactions,
// and an absent slot resolves to ErrBlockNotAvailable like a live node.
func (c *RPCClient) GetBlock(_ context.Context, slot int64, detail solana.DetailLevel) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BlockCalls[slot]++

	if c.Err != nil {
		return nil, c.Err
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", slot, solana.ErrBlockNotAvailable)
	}
	if detail == solana.DetailNone {
		return &solana.Block{Slot: block.Slot, BlockTime: block.BlockTime}, nil
	}
	return block, nil
}

// GetLatestSlot returns the configured head slot.
func (c *RPCClient) GetLatestSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.HeadCalls++
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Head, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[block.Slot] = block
}
