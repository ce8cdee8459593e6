package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
	"solana-pump-radar/internal/storage"
)

// Scorer computes a risk report for a mint. It must not fail.
type Scorer interface {
	Score(ctx context.Context, mint string) *domain.RiskReport
}

// ReportSink receives every report after it has been persisted.
// Sink failures are logged and never fail the scoring task.
type ReportSink interface {
	Name() string
	HandleReport(ctx context.Context, r *domain.RiskReport) error
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Pending int  `json:"pending"`
	Queued  int  `json:"queued"`
	Idle    bool `json:"idle"`
	Tracked int  `json:"tracked"`
}

// Scheduler admits mints for scoring at most once per process and
// runs the scoring on a Pool.
type Scheduler struct {
	pool    *Pool
	scorer  Scorer
	reports storage.RiskReportStore
	sinks   []ReportSink
	logger  *zap.Logger

	mu      sync.Mutex
	tracked map[string]struct{}
}

// New creates a Scheduler that runs scoring tasks on pool.
func New(pool *Pool, scorer Scorer, reports storage.RiskReportStore, logger *zap.Logger, sinks ...ReportSink) *Scheduler {
	return &Scheduler{
		pool:    pool,
		scorer:  scorer,
		reports: reports,
		sinks:   sinks,
		logger:  logging.OrNop(logger).With(zap.String("component", "scheduler")),
		tracked: make(map[string]struct{}),
	}
}

// Enqueue schedules mint for scoring unless it was already admitted by this
// instance or already has a persisted report. It never waits for scoring.
//
// The mint is reserved before the report lookup so concurrent calls for the
// same mint produce a single task. If the lookup or submit fails the
// reservation is released and the error returned.
func (s *Scheduler) Enqueue(ctx context.Context, mint string) error {
	if !s.reserve(mint) {
		observability.RecordEnqueueDecision("seen")
		return nil
	}

	_, err := s.reports.FindRiskReport(ctx, mint)
	switch {
	case err == nil:
		observability.RecordEnqueueDecision("persisted")
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		s.release(mint)
		observability.RecordEnqueueDecision("error")
		return fmt.Errorf("lookup risk report %s: %w", mint, err)
	}

	if err := s.pool.Submit("score:"+mint, s.scoreTask(mint)); err != nil {
		s.release(mint)
		observability.RecordEnqueueDecision("error")
		return fmt.Errorf("submit %s: %w", mint, err)
	}

	observability.RecordEnqueueDecision("queued")
	s.logger.Debug("mint queued", zap.String("mint", mint))
	return nil
}

func (s *Scheduler) reserve(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracked[mint]; ok {
		return false
	}
	s.tracked[mint] = struct{}{}
	return true
}

func (s *Scheduler) release(mint string) {
	s.mu.Lock()
	delete(s.tracked, mint)
	s.mu.Unlock()
}

// scoreTask scores mint, persists the report and fans it out to sinks.
func (s *Scheduler) scoreTask(mint string) Task {
	return func(ctx context.Context) error {
		report := s.scorer.Score(ctx, mint)

		if err := s.reports.UpsertRiskReport(ctx, report); err != nil {
			return fmt.Errorf("persist risk report %s: %w", mint, err)
		}

		for _, sink := range s.sinks {
			if err := sink.HandleReport(ctx, report); err != nil {
				observability.RecordSinkError(sink.Name())
				s.logger.Warn("report sink failed",
					zap.String("sink", sink.Name()),
					zap.String("mint", mint),
					zap.Error(err))
			}
		}
		return nil
	}
}

// Stats returns current queue observations.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	tracked := len(s.tracked)
	s.mu.Unlock()

	return Stats{
		Pending: s.pool.Pending(),
		Queued:  s.pool.Size(),
		Idle:    s.pool.Idle(),
		Tracked: tracked,
	}
}

// WaitIdle blocks until all admitted work has finished or ctx is done.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	return s.pool.WaitIdle(ctx)
}

// Close stops admitting new mints and drains the pool.
func (s *Scheduler) Close(ctx context.Context) error {
	return s.pool.Close(ctx)
}

// HistorySink appends every report to a ReportHistoryStore.
type HistorySink struct {
	store storage.ReportHistoryStore
}

// NewHistorySink creates a sink writing to store.
func NewHistorySink(store storage.ReportHistoryStore) *HistorySink {
	return &HistorySink{store: store}
}

// Name identifies the sink in logs and metrics.
func (h *HistorySink) Name() string { return "history" }

// HandleReport appends r to the history store.
func (h *HistorySink) HandleReport(ctx context.Context, r *domain.RiskReport) error {
	return h.store.AppendReport(ctx, r)
}
