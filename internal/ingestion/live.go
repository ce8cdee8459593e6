package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-pump-radar/internal/discovery"
	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/pipeline"
	"solana-pump-radar/internal/solana"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// TransactionFetcher fetches confirmed transactions by signature.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*domain.RawTransaction, []byte, error)
}

// BatchProcessor runs detected transactions through decode, persist and enqueue.
type BatchProcessor interface {
	Process(ctx context.Context, origin string, txs []domain.RawTransaction, raws []json.RawMessage) pipeline.Result
}

// LiveSource feeds pump.fun transactions from a log subscription into the
// same processor the webhook uses.
type LiveSource struct {
	ws         solana.LogsSubscriber
	rpc        TransactionFetcher
	processor  BatchProcessor
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewLiveSource creates a LiveSource.
func NewLiveSource(ws solana.LogsSubscriber, rpc TransactionFetcher, processor BatchProcessor, logger *zap.Logger) *LiveSource {
	return &LiveSource{
		ws:         ws,
		rpc:        rpc,
		processor:  processor,
		logger:     logging.OrNop(logger).With(zap.String("component", "live")),
		retryDelay: baseRetryDelay,
	}
}

// Run subscribes to program logs and processes create transactions until
// ctx is done or the subscription channel closes.
func (s *LiveSource) Run(ctx context.Context) error {
	logsCh, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{discovery.PumpFun}})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	s.logger.Info("subscribed", zap.String("program", discovery.PumpFun))

	for {
		select {
		case <-ctx.Done():
			return nil
		case notif, ok := <-logsCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("logs subscription closed")
			}
			s.handle(ctx, notif)
		}
	}
}

func (s *LiveSource) handle(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil || !discovery.LogsMentionCreate(notif.Logs) {
		return
	}

	tx, raw, err := s.fetch(ctx, notif.Signature)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("transaction fetch failed",
				zap.String("signature", notif.Signature),
				zap.Uint64("slot", notif.Slot),
				zap.Error(err))
		}
		return
	}

	res := s.processor.Process(ctx, pipeline.OriginLive, []domain.RawTransaction{*tx}, []json.RawMessage{raw})
	s.logger.Debug("notification processed",
		zap.String("signature", notif.Signature),
		zap.Int("detected", res.Detected),
		zap.Int("processed", res.Processed))
}

// fetch makes up to maxRetries attempts, sleeping 500ms then 1s between
// them. A freshly notified transaction is often not yet queryable.
func (s *LiveSource) fetch(ctx context.Context, signature string) (*domain.RawTransaction, []byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, raw, err := s.rpc.GetTransaction(ctx, signature)
		if err == nil {
			return tx, raw, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if attempt == maxRetries-1 {
			break
		}

		delay := s.backoff(attempt)
		s.logger.Debug("retrying transaction fetch",
			zap.String("signature", signature),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	return nil, nil, lastErr
}

// backoff is the sleep after the given zero-based failed attempt.
func (s *LiveSource) backoff(attempt int) time.Duration {
	return s.retryDelay * time.Duration(1<<attempt)
}
