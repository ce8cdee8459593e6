package domain

// Instruction is a compiled instruction as delivered in raw (json-encoded) transactions.
type Instruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"` // base58
}

// TransactionMessage holds the ordered account keys and instructions of a transaction.
type TransactionMessage struct {
	AccountKeys  []string      `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// TransactionBody wraps the message the way Solana RPC and webhook payloads nest it.
type TransactionBody struct {
	Message TransactionMessage `json:"message"`
}

// TransactionMeta carries execution status. A non-null Err means the transaction failed.
type TransactionMeta struct {
	Err interface{} `json:"err"`
}

// RawTransaction is a single confirmed transaction record.
// Shape matches the Helius raw webhook and RPC getTransaction (encoding=json).
type RawTransaction struct {
	Signature   string           `json:"signature"`
	Slot        uint64           `json:"slot"`
	BlockTime   int64            `json:"blockTime"` // unix seconds
	Transaction TransactionBody  `json:"transaction"`
	Meta        *TransactionMeta `json:"meta,omitempty"`
}

// Failed reports whether the transaction carries a failure marker.
func (t *RawTransaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// AccountKey resolves an index into the account key list.
func (t *RawTransaction) AccountKey(idx int) (string, bool) {
	keys := t.Transaction.Message.AccountKeys
	if idx < 0 || idx >= len(keys) {
		return "", false
	}
	return keys[idx], true
}
