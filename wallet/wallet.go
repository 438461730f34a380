// Package wallet wraps the external wallet service contract: resolving a
// recipient's wallet handle, transferring funds out of the tournament escrow
// wallet, and checking identity verification.
package wallet

import (
	"context"
	"errors"
)

var (
	ErrWalletNotFound  = errors.New("wallet: recipient has no wallet on file")
	ErrTransferFailed  = errors.New("wallet: transfer rejected by wallet service")
	ErrTransferTimeout = errors.New("wallet: transfer deadline exceeded")
)

// Account is a recipient's resolved wallet handle.
type Account struct {
	WalletID string
	Address  string
}

// TransferRequest carries every argument the wallet service's transfer call
// takes. Reference is stable per prize id so a retried call cannot double-pay.
type TransferRequest struct {
	FromWallet string
	ToWallet   string
	Amount     float64
	Currency   string
	Reference  string
}

type TransferResult struct {
	Success       bool
	TransactionID string
	Error         string
}

// Client is the external wallet service contract. HTTPClient is the
// production implementation; MemoryClient backs unit tests.
type Client interface {
	GetWallet(ctx context.Context, userID int) (*Account, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	VerifyIdentity(ctx context.Context, userID int) (bool, error)
}
