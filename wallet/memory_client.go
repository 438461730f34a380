package wallet

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is an in-process Client used by tests: it never calls out
// over the network, and lets tests force a transfer to fail by registering
// its Reference in FailReferences.
type MemoryClient struct {
	mu             sync.Mutex
	Accounts       map[int]Account
	Verified       map[int]bool
	FailReferences map[string]bool
	nextTxnSeq     int
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		Accounts:       make(map[int]Account),
		Verified:       make(map[int]bool),
		FailReferences: make(map[string]bool),
	}
}

func (c *MemoryClient) GetWallet(ctx context.Context, userID int) (*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct, ok := c.Accounts[userID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &acct, nil
}

func (c *MemoryClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailReferences[req.Reference] {
		return &TransferResult{Success: false, Error: "forced failure"}, nil
	}
	c.nextTxnSeq++
	return &TransferResult{
		Success:       true,
		TransactionID: fmt.Sprintf("memtxn-%s-%d", req.Reference, c.nextTxnSeq),
	}, nil
}

func (c *MemoryClient) VerifyIdentity(ctx context.Context, userID int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Verified[userID], nil
}
