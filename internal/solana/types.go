package solana

import "errors"

// Lookup errors.
var (
	// ErrAccountNotFound is returned when an account does not exist on chain.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned when a transaction is not (yet) queryable.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded from base64
	Executable bool
	RentEpoch  uint64
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address  string
	Amount   uint64 // raw amount, not adjusted for decimals
	Decimals uint8
}

// MintState is the decoded SPL Token mint account.
type MintState struct {
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	MintAuthority   *string
	FreezeAuthority *string
}
