package solana

import (
	"context"

	"solana-pump-radar/internal/domain"
)

// RPCClient defines the Solana JSON-RPC methods the service consumes.
type RPCClient interface {
	// GetAccountInfo returns ErrAccountNotFound when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenLargestAccounts returns the largest token accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTransaction returns the transaction and its raw JSON encoding.
	GetTransaction(ctx context.Context, signature string) (*domain.RawTransaction, []byte, error)
}
