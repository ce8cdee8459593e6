package domain

// Source identifies where a launch was detected.
type Source string

const (
	SourcePumpFun Source = "pumpfun"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// CreateEvent is a token-creation event extracted from a transaction.
type CreateEvent struct {
	Mint      string
	Creator   string // fee payer, not verified
	Signature string // idempotency key for launch persistence
	Slot      uint64
	BlockTime int64 // unix seconds
}

// LaunchEvent is the persisted form of a CreateEvent.
// Corresponds to launch_events table in PostgreSQL.
type LaunchEvent struct {
	Signature string // PRIMARY KEY
	Slot      uint64
	BlockTime int64 // unix seconds
	Mint      string
	Creator   string
	Source    Source
	RawJSON   []byte // original transaction as received
	CreatedAt int64  // record creation timestamp (ms)
}

// NewLaunchEvent builds the persisted launch record for a detected event.
func NewLaunchEvent(ev CreateEvent, raw []byte) *LaunchEvent {
	return &LaunchEvent{
		Signature: ev.Signature,
		Slot:      ev.Slot,
		BlockTime: ev.BlockTime,
		Mint:      ev.Mint,
		Creator:   ev.Creator,
		Source:    SourcePumpFun,
		RawJSON:   raw,
	}
}
