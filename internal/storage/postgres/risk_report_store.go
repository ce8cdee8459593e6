package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// RiskReportStore implements storage.RiskReportStore using PostgreSQL.
type RiskReportStore struct {
	pool *Pool
}

// NewRiskReportStore creates a new RiskReportStore.
func NewRiskReportStore(pool *Pool) *RiskReportStore {
	return &RiskReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RiskReportStore = (*RiskReportStore)(nil)

// FindRiskReport retrieves the report for mint. Returns ErrNotFound if not exists.
func (s *RiskReportStore) FindRiskReport(ctx context.Context, mint string) (*domain.RiskReport, error) {
	query := `
		SELECT mint, score, label, reasons, mint_authority, freeze_authority, top_holders, computed_at
		FROM risk_reports
		WHERE mint = $1
	`

	var r domain.RiskReport
	var label string
	var reasons, holders []byte

	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&r.Mint,
		&r.Score,
		&label,
		&reasons,
		&r.Authorities.MintAuthority,
		&r.Authorities.FreezeAuthority,
		&holders,
		&r.ComputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find risk report: %w", err)
	}

	r.Label = domain.Label(label)
	if err := json.Unmarshal(reasons, &r.Reasons); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if err := json.Unmarshal(holders, &r.TopHolders); err != nil {
		return nil, fmt.Errorf("decode top holders: %w", err)
	}
	return &r, nil
}

// UpsertRiskReport replaces the report for r.Mint wholesale.
func (s *RiskReportStore) UpsertRiskReport(ctx context.Context, r *domain.RiskReport) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	reasons, err := json.Marshal(nonNil(r.Reasons))
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	holders, err := json.Marshal(nonNil(r.TopHolders))
	if err != nil {
		return fmt.Errorf("encode top holders: %w", err)
	}

	query := `
		INSERT INTO risk_reports (
			mint, score, label, reasons, mint_authority, freeze_authority, top_holders, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (mint) DO UPDATE SET
			score = EXCLUDED.score,
			label = EXCLUDED.label,
			reasons = EXCLUDED.reasons,
			mint_authority = EXCLUDED.mint_authority,
			freeze_authority = EXCLUDED.freeze_authority,
			top_holders = EXCLUDED.top_holders,
			computed_at = EXCLUDED.computed_at
	`

	_, err = s.pool.Exec(ctx, query,
		r.Mint,
		r.Score,
		string(r.Label),
		reasons,
		r.Authorities.MintAuthority,
		r.Authorities.FreezeAuthority,
		holders,
		r.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert risk report: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
