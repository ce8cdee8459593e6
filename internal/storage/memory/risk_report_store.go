package memory

import (
	"context"
	"sync"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// RiskReportStore is an in-memory implementation of storage.RiskReportStore.
type RiskReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskReport // keyed by mint
}

// NewRiskReportStore creates a new in-memory risk report store.
func NewRiskReportStore() *RiskReportStore {
	return &RiskReportStore{
		data: make(map[string]*domain.RiskReport),
	}
}

// FindRiskReport retrieves the report for mint. Returns ErrNotFound if not exists.
func (s *RiskReportStore) FindRiskReport(_ context.Context, mint string) (*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyReport(r), nil
}

// UpsertRiskReport replaces the report for r.Mint.
func (s *RiskReportStore) UpsertRiskReport(_ context.Context, r *domain.RiskReport) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.Mint] = copyReport(r)
	return nil
}

// copyReport deep-copies r so callers cannot mutate stored state.
func copyReport(r *domain.RiskReport) *domain.RiskReport {
	c := *r
	if r.Reasons != nil {
		c.Reasons = append([]string(nil), r.Reasons...)
	}
	if r.TopHolders != nil {
		c.TopHolders = append([]domain.TopHolder{}, r.TopHolders...)
	}
	c.Authorities = domain.Authorities{
		MintAuthority:   copyString(r.Authorities.MintAuthority),
		FreezeAuthority: copyString(r.Authorities.FreezeAuthority),
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Verify interface compliance at compile time.
var _ storage.RiskReportStore = (*RiskReportStore)(nil)
