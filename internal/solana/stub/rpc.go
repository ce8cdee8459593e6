package stub

import (
	"context"
	"encoding/json"
	"sync"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Errors are keyed by RPC method name and take precedence over stored data.
type RPCClient struct {
	Accounts     map[string]*solana.AccountInfo
	Holders      map[string][]solana.TokenAccountBalance
	Transactions map[string]*domain.RawTransaction
	Errors       map[string]error

	mu    sync.Mutex
	calls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:     make(map[string]*solana.AccountInfo),
		Holders:      make(map[string][]solana.TokenAccountBalance),
		Transactions: make(map[string]*domain.RawTransaction),
		Errors:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *RPCClient) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Errors[method]
}

// GetAccountInfo returns a stored account or solana.ErrAccountNotFound.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return info, nil
}

// GetTokenLargestAccounts returns a copy of the stored holders for mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if err := c.record("getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	holders := c.Holders[mint]
	out := make([]solana.TokenAccountBalance, len(holders))
	copy(out, holders)
	return out, nil
}

// GetTransaction returns a stored transaction or solana.ErrTransactionNotFound.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*domain.RawTransaction, []byte, error) {
	if err := c.record("getTransaction"); err != nil {
		return nil, nil, err
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil, solana.ErrTransactionNotFound
	}
	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, nil, err
	}
	return tx, raw, nil
}

// MintAccount builds an AccountInfo holding an encoded SPL mint.
func MintAccount(supply uint64, decimals uint8, mintAuthority, freezeAuthority []byte) *solana.AccountInfo {
	return &solana.AccountInfo{
		Owner: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		Data:  EncodeMint(supply, decimals, mintAuthority, freezeAuthority),
	}
}

// EncodeMint serializes an SPL mint account. Nil authorities encode as None.
func EncodeMint(supply uint64, decimals uint8, mintAuthority, freezeAuthority []byte) []byte {
	data := make([]byte, solana.MintAccountSize)
	putOption(data[0:36], mintAuthority)
	for i := 0; i < 8; i++ {
		data[36+i] = byte(supply >> (8 * i))
	}
	data[44] = decimals
	data[45] = 1
	putOption(data[46:82], freezeAuthority)
	return data
}

func putOption(dst []byte, key []byte) {
	if key == nil {
		return
	}
	dst[0] = 1
	copy(dst[4:36], key)
}
