package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// LaunchEventStore implements storage.LaunchEventStore using PostgreSQL.
type LaunchEventStore struct {
	pool *Pool
}

// NewLaunchEventStore creates a new LaunchEventStore.
func NewLaunchEventStore(pool *Pool) *LaunchEventStore {
	return &LaunchEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchEventStore = (*LaunchEventStore)(nil)

const launchColumns = `signature, slot, block_time, mint, creator, source, raw, created_at`

// UpsertLaunchEvent inserts e unless its signature already exists.
func (s *LaunchEventStore) UpsertLaunchEvent(ctx context.Context, e *domain.LaunchEvent) (bool, error) {
	if e == nil || e.Signature == "" || e.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO launch_events (` + launchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO NOTHING
	`

	raw := e.RawJSON
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	createdAt := e.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	tag, err := s.pool.Exec(ctx, query,
		e.Signature,
		int64(e.Slot),
		e.BlockTime,
		e.Mint,
		e.Creator,
		string(e.Source),
		raw,
		createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert launch event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListRecentLaunches returns up to limit launches ordered by block_time DESC.
func (s *LaunchEventStore) ListRecentLaunches(ctx context.Context, limit int) ([]*domain.LaunchEvent, error) {
	if limit <= 0 {
		return []*domain.LaunchEvent{}, nil
	}

	query := `
		SELECT ` + launchColumns + `
		FROM launch_events
		ORDER BY block_time DESC, slot DESC, signature ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent launches: %w", err)
	}
	defer rows.Close()

	launches := make([]*domain.LaunchEvent, 0, limit)
	for rows.Next() {
		e, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan launch row: %w", err)
		}
		launches = append(launches, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launch rows: %w", err)
	}
	return launches, nil
}

// GetLaunchByMint returns the earliest launch for mint. Returns ErrNotFound if not exists.
func (s *LaunchEventStore) GetLaunchByMint(ctx context.Context, mint string) (*domain.LaunchEvent, error) {
	query := `
		SELECT ` + launchColumns + `
		FROM launch_events
		WHERE mint = $1
		ORDER BY block_time ASC, signature ASC
		LIMIT 1
	`

	e, err := scanLaunch(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch by mint: %w", err)
	}
	return e, nil
}

// scanLaunch scans a single row into a LaunchEvent.
func scanLaunch(row pgx.Row) (*domain.LaunchEvent, error) {
	var e domain.LaunchEvent
	var slot int64
	var source string

	err := row.Scan(
		&e.Signature,
		&slot,
		&e.BlockTime,
		&e.Mint,
		&e.Creator,
		&source,
		&e.RawJSON,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Slot = uint64(slot)
	e.Source = domain.Source(source)
	return &e, nil
}
