package clickhouse

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/storage"
)

// ReportHistoryStore implements storage.ReportHistoryStore using ClickHouse.
// Every computed report becomes its own row; nothing is replaced.
type ReportHistoryStore struct {
	conn *Conn
}

// NewReportHistoryStore creates a new ReportHistoryStore.
func NewReportHistoryStore(conn *Conn) *ReportHistoryStore {
	return &ReportHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReportHistoryStore = (*ReportHistoryStore)(nil)

// AppendReport inserts r under a fresh row id.
func (s *ReportHistoryStore) AppendReport(ctx context.Context, r *domain.RiskReport) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	addresses := make([]string, len(r.TopHolders))
	pcts := make([]float64, len(r.TopHolders))
	for i, h := range r.TopHolders {
		addresses[i] = h.Address
		pcts[i] = h.Percentage
	}
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	query := `
		INSERT INTO risk_report_history (
			id, mint, score, label, reasons,
			mint_authority, freeze_authority,
			top_holder_address, top_holder_pct, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		uuid.New(), r.Mint, uint8(r.Score), string(r.Label), reasons,
		r.Authorities.MintAuthority, r.Authorities.FreezeAuthority,
		addresses, pcts, uint64(r.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("insert report history: %w", err)
	}
	return nil
}

// ListReportHistory returns recorded reports for mint ordered by computed_at ASC.
func (s *ReportHistoryStore) ListReportHistory(ctx context.Context, mint string) ([]*domain.RiskReport, error) {
	query := `
		SELECT mint, score, label, reasons, mint_authority, freeze_authority,
			top_holder_address, top_holder_pct, computed_at
		FROM risk_report_history
		WHERE mint = ?
		ORDER BY computed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query report history: %w", err)
	}
	defer rows.Close()

	var result []*domain.RiskReport
	for rows.Next() {
		var (
			r          domain.RiskReport
			score      uint8
			label      string
			addresses  []string
			pcts       []float64
			computedAt uint64
		)
		if err := rows.Scan(
			&r.Mint, &score, &label, &r.Reasons,
			&r.Authorities.MintAuthority, &r.Authorities.FreezeAuthority,
			&addresses, &pcts, &computedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report history: %w", err)
		}

		r.Score = int(score)
		r.Label = domain.Label(label)
		r.ComputedAt = int64(computedAt)
		r.TopHolders = make([]domain.TopHolder, 0, len(addresses))
		for i, addr := range addresses {
			h := domain.TopHolder{Address: addr}
			if i < len(pcts) {
				h.Percentage = pcts[i]
			}
			r.TopHolders = append(r.TopHolders, h)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report history: %w", err)
	}

	return result, nil
}
