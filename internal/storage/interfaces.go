package storage

import (
	"context"

	"solana-pump-radar/internal/domain"
)

// LaunchEventStore provides access to launch_events storage.
type LaunchEventStore interface {
	// UpsertLaunchEvent stores a launch keyed by signature.
	// Existing signatures are left untouched and reported as inserted=false.
	UpsertLaunchEvent(ctx context.Context, e *domain.LaunchEvent) (inserted bool, err error)

	// ListRecentLaunches returns up to limit launches, newest block_time first.
	ListRecentLaunches(ctx context.Context, limit int) ([]*domain.LaunchEvent, error)

	// GetLaunchByMint returns the earliest launch for mint. Returns ErrNotFound if not exists.
	GetLaunchByMint(ctx context.Context, mint string) (*domain.LaunchEvent, error)
}

// RiskReportStore provides access to risk_reports storage.
type RiskReportStore interface {
	// FindRiskReport retrieves the report for mint. Returns ErrNotFound if not exists.
	FindRiskReport(ctx context.Context, mint string) (*domain.RiskReport, error)

	// UpsertRiskReport replaces the report for r.Mint wholesale.
	UpsertRiskReport(ctx context.Context, r *domain.RiskReport) error
}

// Store is the full persistence contract used by the server.
type Store interface {
	LaunchEventStore
	RiskReportStore

	// Ping checks the backing database is reachable.
	Ping(ctx context.Context) error
}

// ReportHistoryStore is an append-only log of every computed report.
type ReportHistoryStore interface {
	// AppendReport records one computation of a report.
	AppendReport(ctx context.Context, r *domain.RiskReport) error

	// ListReportHistory returns recorded reports for mint, oldest first.
	ListReportHistory(ctx context.Context, mint string) ([]*domain.RiskReport, error)
}
