package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin/binding"

	"solana-pump-radar/internal/domain"
)

// ErrEmptyPayload is returned for a blank request body.
var ErrEmptyPayload = errors.New("empty payload")

// ParseError reports why a webhook body was rejected.
// Index is the offending transaction, or -1 for the payload as a whole.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid payload: %v", e.Err)
	}
	return fmt.Sprintf("invalid payload: transaction %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// wire types mirror the accepted payload shape. Pointers distinguish
// missing fields from zero values.
type wireTransaction struct {
	Signature   *string                 `json:"signature" binding:"required"`
	Slot        *uint64                 `json:"slot" binding:"required"`
	BlockTime   *int64                  `json:"blockTime" binding:"required"`
	Transaction *wireBody               `json:"transaction" binding:"required"`
	Meta        *domain.TransactionMeta `json:"meta"`
}

type wireBody struct {
	Message *wireMessage `json:"message" binding:"required"`
}

type wireMessage struct {
	AccountKeys  []string          `json:"accountKeys" binding:"required"`
	Instructions []wireInstruction `json:"instructions" binding:"required,dive"`
}

type wireInstruction struct {
	ProgramIDIndex *int    `json:"programIdIndex" binding:"required"`
	Accounts       []int   `json:"accounts" binding:"required"`
	Data           *string `json:"data" binding:"required"`
}

// Parse normalizes a webhook body (one transaction object or an array of
// them) into typed transactions. raws[i] is the original JSON of txs[i].
// Any invalid transaction rejects the whole payload.
func Parse(body []byte) (txs []domain.RawTransaction, raws []json.RawMessage, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil, &ParseError{Index: -1, Err: ErrEmptyPayload}
	}

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, nil, &ParseError{Index: -1, Err: err}
		}
	case '{':
		raws = []json.RawMessage{json.RawMessage(trimmed)}
	default:
		return nil, nil, &ParseError{Index: -1, Err: errors.New("expected object or array")}
	}

	txs = make([]domain.RawTransaction, 0, len(raws))
	for i, raw := range raws {
		tx, err := parseTransaction(raw)
		if err != nil {
			return nil, nil, &ParseError{Index: i, Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, raws, nil
}

func parseTransaction(raw json.RawMessage) (domain.RawTransaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.RawTransaction{}, err
	}
	if err := binding.Validator.ValidateStruct(&w); err != nil {
		return domain.RawTransaction{}, err
	}
	if *w.Signature == "" {
		return domain.RawTransaction{}, errors.New("empty signature")
	}

	msg := w.Transaction.Message
	instructions := make([]domain.Instruction, len(msg.Instructions))
	for i, ix := range msg.Instructions {
		instructions[i] = domain.Instruction{
			ProgramIDIndex: *ix.ProgramIDIndex,
			Accounts:       ix.Accounts,
			Data:           *ix.Data,
		}
	}

	return domain.RawTransaction{
		Signature: *w.Signature,
		Slot:      *w.Slot,
		BlockTime: *w.BlockTime,
		Transaction: domain.TransactionBody{
			Message: domain.TransactionMessage{
				AccountKeys:  msg.AccountKeys,
				Instructions: instructions,
			},
		},
		Meta: w.Meta,
	}, nil
}
