package postgres

import (
	"context"

	"solana-pump-radar/internal/storage"
)

// Store combines the Postgres launch and report stores over one pool.
type Store struct {
	*LaunchEventStore
	*RiskReportStore

	pool *Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		LaunchEventStore: NewLaunchEventStore(pool),
		RiskReportStore:  NewRiskReportStore(pool),
		pool:             pool,
	}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ storage.Store = (*Store)(nil)
