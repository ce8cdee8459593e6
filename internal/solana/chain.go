package solana

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ChainReader answers the chain queries risk scoring needs.
type ChainReader struct {
	rpc RPCClient
}

// NewChainReader creates a ChainReader backed by rpc.
func NewChainReader(rpc RPCClient) *ChainReader {
	return &ChainReader{rpc: rpc}
}

// GetMintState fetches and decodes a mint account.
// A missing account is an error wrapping ErrAccountNotFound.
func (c *ChainReader) GetMintState(ctx context.Context, mint string) (*MintState, error) {
	info, err := c.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account %s: %w", mint, err)
	}

	state, err := ParseMint(info.Data)
	if err != nil {
		return nil, fmt.Errorf("parse mint %s: %w", mint, err)
	}
	return state, nil
}

// GetLargestHolders returns the largest token accounts sorted by amount, descending.
func (c *ChainReader) GetLargestHolders(ctx context.Context, mint string) ([]TokenAccountBalance, error) {
	holders, err := c.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get largest holders %s: %w", mint, err)
	}

	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Amount > holders[j].Amount
	})
	return holders, nil
}

// AccountExists reports whether an account exists at address.
func (c *ChainReader) AccountExists(ctx context.Context, address string) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get account %s: %w", address, err)
	}
	return true, nil
}
