package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"solana-pump-radar/internal/discovery"
	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
	"solana-pump-radar/internal/storage"
)

// Enqueuer admits a mint for risk scoring without waiting for it.
type Enqueuer interface {
	Enqueue(ctx context.Context, mint string) error
}

// LaunchNotifier is told about launches persisted for the first time.
type LaunchNotifier interface {
	Name() string
	NotifyLaunch(ctx context.Context, e *domain.LaunchEvent) error
}

// Result summarizes one processed batch.
type Result struct {
	Received  int `json:"received"`
	Detected  int `json:"detected"`
	Processed int `json:"processed"`
}

// Processor runs the decode, persist and enqueue steps shared by every
// transaction source.
type Processor struct {
	decoder   *discovery.CreateDecoder
	launches  storage.LaunchEventStore
	enqueuer  Enqueuer
	notifiers []LaunchNotifier
	logger    *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(
	decoder *discovery.CreateDecoder,
	launches storage.LaunchEventStore,
	enqueuer Enqueuer,
	logger *zap.Logger,
	notifiers ...LaunchNotifier,
) *Processor {
	return &Processor{
		decoder:   decoder,
		launches:  launches,
		enqueuer:  enqueuer,
		notifiers: notifiers,
		logger:    logging.OrNop(logger).With(zap.String("component", "pipeline")),
	}
}

// Origins label where a batch came from in logs and metrics.
const (
	OriginWebhook = "webhook"
	OriginLive    = "live"
)

// Process decodes txs and, for every create event, upserts the launch and
// enqueues its mint. raws[i] is the original JSON of txs[i] and may be nil.
//
// Persistence and enqueue failures are logged per event and never abort the
// batch. Processed counts events whose launch was stored or already present.
func (p *Processor) Process(ctx context.Context, origin string, txs []domain.RawTransaction, raws []json.RawMessage) Result {
	start := time.Now()
	res := Result{Received: len(txs)}
	observability.RecordTransactionsReceived(origin, len(txs))

	events := p.decoder.Decode(txs)
	res.Detected = len(events)
	observability.RecordCreatesDetected(origin, len(events))

	rawBySig := make(map[string]json.RawMessage, len(txs))
	for i := range txs {
		if i >= len(raws) {
			break
		}
		if _, ok := rawBySig[txs[i].Signature]; !ok {
			rawBySig[txs[i].Signature] = raws[i]
		}
	}

	for _, ev := range events {
		launch := domain.NewLaunchEvent(ev, rawBySig[ev.Signature])

		inserted, err := p.launches.UpsertLaunchEvent(ctx, launch)
		if err != nil {
			p.logger.Error("persist launch failed",
				zap.String("signature", ev.Signature),
				zap.String("mint", ev.Mint),
				zap.Error(err))
			continue
		}
		res.Processed++

		if inserted {
			observability.RecordLaunchPersisted()
			p.notify(ctx, launch)
		}

		if err := p.enqueuer.Enqueue(ctx, ev.Mint); err != nil {
			p.logger.Error("enqueue mint failed",
				zap.String("mint", ev.Mint),
				zap.Error(err))
		}
	}

	p.logger.Info("batch processed",
		zap.String("origin", origin),
		zap.Int("received", res.Received),
		zap.Int("detected", res.Detected),
		zap.Int("processed", res.Processed),
		zap.Duration("duration", time.Since(start)))
	return res
}

func (p *Processor) notify(ctx context.Context, launch *domain.LaunchEvent) {
	for _, n := range p.notifiers {
		if err := n.NotifyLaunch(ctx, launch); err != nil {
			observability.RecordSinkError(n.Name())
			p.logger.Warn("launch notification failed",
				zap.String("notifier", n.Name()),
				zap.String("mint", launch.Mint),
				zap.Error(err))
		}
	}
}
