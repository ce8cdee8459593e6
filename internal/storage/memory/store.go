package memory

import (
	"context"

	"solana-pump-radar/internal/storage"
)

// Store combines the in-memory launch and report stores.
// Used when no Postgres DSN is configured; data does not survive restarts.
type Store struct {
	*LaunchEventStore
	*RiskReportStore
}

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{
		LaunchEventStore: NewLaunchEventStore(),
		RiskReportStore:  NewRiskReportStore(),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

var _ storage.Store = (*Store)(nil)
