package memory

import (
	"context"
	"sync"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// ReportHistoryStore is an in-memory implementation of storage.ReportHistoryStore.
type ReportHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.RiskReport // keyed by mint, append order
}

// NewReportHistoryStore creates a new in-memory report history store.
func NewReportHistoryStore() *ReportHistoryStore {
	return &ReportHistoryStore{
		data: make(map[string][]*domain.RiskReport),
	}
}

// AppendReport records one computation of a report.
func (s *ReportHistoryStore) AppendReport(_ context.Context, r *domain.RiskReport) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.Mint] = append(s.data[r.Mint], copyReport(r))
	return nil
}

// ListReportHistory returns recorded reports for mint, oldest first.
func (s *ReportHistoryStore) ListReportHistory(_ context.Context, mint string) ([]*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[mint]
	result := make([]*domain.RiskReport, 0, len(history))
	for _, r := range history {
		result = append(result, copyReport(r))
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ReportHistoryStore = (*ReportHistoryStore)(nil)
