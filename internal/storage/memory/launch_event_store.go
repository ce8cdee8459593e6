package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// LaunchEventStore is an in-memory implementation of storage.LaunchEventStore.
type LaunchEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LaunchEvent // keyed by signature
}

// NewLaunchEventStore creates a new in-memory launch event store.
func NewLaunchEventStore() *LaunchEventStore {
	return &LaunchEventStore{
		data: make(map[string]*domain.LaunchEvent),
	}
}

// UpsertLaunchEvent stores e unless its signature is already present.
func (s *LaunchEventStore) UpsertLaunchEvent(_ context.Context, e *domain.LaunchEvent) (bool, error) {
	if e == nil || e.Signature == "" || e.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Signature]; exists {
		return false, nil
	}

	stored := copyLaunch(e)
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	s.data[e.Signature] = stored
	return true, nil
}

// ListRecentLaunches returns up to limit launches ordered by block_time DESC.
func (s *LaunchEventStore) ListRecentLaunches(_ context.Context, limit int) ([]*domain.LaunchEvent, error) {
	if limit <= 0 {
		return []*domain.LaunchEvent{}, nil
	}

	s.mu.RLock()
	result := make([]*domain.LaunchEvent, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, copyLaunch(e))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockTime != result[j].BlockTime {
			return result[i].BlockTime > result[j].BlockTime
		}
		if result[i].Slot != result[j].Slot {
			return result[i].Slot > result[j].Slot
		}
		return result[i].Signature < result[j].Signature
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetLaunchByMint returns the earliest launch for mint. Returns ErrNotFound if not exists.
func (s *LaunchEventStore) GetLaunchByMint(_ context.Context, mint string) (*domain.LaunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.LaunchEvent
	for _, e := range s.data {
		if e.Mint != mint {
			continue
		}
		if found == nil || e.BlockTime < found.BlockTime ||
			(e.BlockTime == found.BlockTime && e.Signature < found.Signature) {
			found = e
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return copyLaunch(found), nil
}

// Len returns the number of stored launches.
func (s *LaunchEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyLaunch(e *domain.LaunchEvent) *domain.LaunchEvent {
	c := *e
	if e.RawJSON != nil {
		c.RawJSON = append([]byte(nil), e.RawJSON...)
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.LaunchEventStore = (*LaunchEventStore)(nil)
