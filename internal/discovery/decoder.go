package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
)

const (
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// discriminatorLen is the length of the Anchor instruction discriminator.
	discriminatorLen = 8

	// createLogMarker is emitted by the pump.fun program when handling a create instruction.
	createLogMarker = "Program log: Instruction: Create"
)

// CreateDiscriminator identifies the pump.fun "create" instruction.
var CreateDiscriminator = [discriminatorLen]byte{24, 30, 200, 40, 5, 28, 7, 119}

// Decode errors. All of them degrade to "no event" for the transaction.
var (
	ErrIndexOutOfRange = errors.New("account index out of range")
	ErrInvalidData     = errors.New("invalid instruction data")
)

// CreateDecoder extracts pump.fun create events from raw transactions.
type CreateDecoder struct {
	logger *zap.Logger
}

// NewCreateDecoder creates a decoder. A nil logger disables logging.
func NewCreateDecoder(logger *zap.Logger) *CreateDecoder {
	return &CreateDecoder{logger: logging.OrNop(logger)}
}

// Decode returns create events in batch order, at most one per transaction.
// Failed transactions and undecodable ones yield no event; Decode never fails.
func (d *CreateDecoder) Decode(batch []domain.RawTransaction) []domain.CreateEvent {
	events := make([]domain.CreateEvent, 0)
	for i := range batch {
		ev, err := d.DecodeTransaction(&batch[i])
		if err != nil {
			observability.RecordDecodeError(errorKind(err))
			d.logger.Error("decode transaction",
				zap.String("signature", batch[i].Signature),
				zap.Error(err))
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// DecodeTransaction scans instructions in order and returns the first create event.
// Returns (nil, nil) when the transaction holds no create instruction.
func (d *CreateDecoder) DecodeTransaction(tx *domain.RawTransaction) (ev *domain.CreateEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = nil, fmt.Errorf("%w: %v", ErrInvalidData, r)
		}
	}()

	if tx.Failed() {
		return nil, nil
	}

	for i, ix := range tx.Transaction.Message.Instructions {
		programID, ok := tx.AccountKey(ix.ProgramIDIndex)
		if !ok {
			return nil, fmt.Errorf("instruction %d program index %d: %w", i, ix.ProgramIDIndex, ErrIndexOutOfRange)
		}
		if programID != PumpFun || ix.Data == "" {
			continue
		}

		data, err := base58.Decode(ix.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w: %v", i, ErrInvalidData, err)
		}
		if !IsCreateInstruction(data) {
			continue
		}

		if len(ix.Accounts) == 0 {
			d.logger.Warn("create instruction has no accounts",
				zap.String("signature", tx.Signature),
				zap.Int("instruction", i))
			continue
		}

		mint, ok := tx.AccountKey(ix.Accounts[0])
		if !ok {
			return nil, fmt.Errorf("instruction %d mint index %d: %w", i, ix.Accounts[0], ErrIndexOutOfRange)
		}
		creator, ok := tx.AccountKey(0)
		if !ok {
			return nil, fmt.Errorf("fee payer: %w", ErrIndexOutOfRange)
		}

		return &domain.CreateEvent{
			Mint:      mint,
			Creator:   creator,
			Signature: tx.Signature,
			Slot:      tx.Slot,
			BlockTime: tx.BlockTime,
		}, nil
	}

	return nil, nil
}

// IsCreateInstruction reports whether decoded instruction data starts with the create discriminator.
func IsCreateInstruction(data []byte) bool {
	if len(data) < discriminatorLen {
		return false
	}
	return bytes.Equal(data[:discriminatorLen], CreateDiscriminator[:])
}

// LogsMentionCreate reports whether program logs show a pump.fun create.
// Used to filter live log notifications before fetching the full transaction.
func LogsMentionCreate(logs []string) bool {
	for _, line := range logs {
		if strings.HasPrefix(line, createLogMarker) {
			return true
		}
	}
	return false
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrInvalidData):
		return "invalid_data"
	default:
		return "other"
	}
}
