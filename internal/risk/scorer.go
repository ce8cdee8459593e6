package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
	"solana-pump-radar/internal/solana"
)

// Score contributions.
const (
	mintAuthorityPenalty   = 35
	freezeAuthorityPenalty = 25
	extremeConcentration   = 30
	highConcentration      = 20
	moderateConcentration  = 10
	top5Penalty            = 10
	holdersUnknownPenalty  = 10
	noMetadataPenalty      = 5

	fallbackScore = 90

	// maxTopHolders is how many holders a report keeps.
	maxTopHolders = 5
)

// Reason strings, in the order they can appear in a report.
const (
	ReasonCannotVerify       = "cannot verify safety"
	ReasonMintAuthority      = "mint authority active — creator can mint unlimited tokens"
	ReasonMintRevoked        = "mint authority revoked"
	ReasonFreezeAuthority    = "freeze authority active — creator can freeze accounts"
	ReasonFreezeRevoked      = "freeze authority revoked"
	ReasonExtremeHolders     = "extreme holder concentration"
	ReasonHighHolders        = "high holder concentration"
	ReasonModerateHolders    = "moderate holder concentration"
	ReasonDistributed        = "distributed ownership"
	ReasonHoldersUnavailable = "unable to verify holder distribution"
	ReasonNoMetadata         = "no metadata found (unusual)"
	ReasonMetadataExists     = "metadata exists"
)

var (
	hundred          = decimal.NewFromInt(100)
	extremeThreshold = decimal.NewFromInt(50)
	highThreshold    = decimal.NewFromInt(30)
	modThreshold     = decimal.NewFromInt(15)
	top5Threshold    = decimal.NewFromInt(80)
)

// ChainReader is the subset of chain queries the scorer needs.
type ChainReader interface {
	GetMintState(ctx context.Context, mint string) (*solana.MintState, error)
	GetLargestHolders(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error)
	AccountExists(ctx context.Context, address string) (bool, error)
}

// Scorer computes risk reports from on-chain state.
// It has no persistence side effects.
type Scorer struct {
	chain  ChainReader
	logger *zap.Logger
	now    func() time.Time
}

// NewScorer creates a Scorer.
func NewScorer(chain ChainReader, logger *zap.Logger) *Scorer {
	return &Scorer{
		chain:  chain,
		logger: logging.OrNop(logger).With(zap.String("component", "risk")),
		now:    time.Now,
	}
}

// Score assesses mint. It never fails: an unreadable mint yields the
// fixed high-risk fallback report.
func (s *Scorer) Score(ctx context.Context, mint string) *domain.RiskReport {
	start := s.now()
	report := s.score(ctx, mint)
	report.ComputedAt = s.now().UnixMilli()

	observability.RecordReport(string(report.Label), s.now().Sub(start).Seconds())
	s.logger.Info("risk computed",
		zap.String("mint", mint),
		zap.Int("score", report.Score),
		zap.String("label", string(report.Label)))
	return report
}

func (s *Scorer) score(ctx context.Context, mint string) *domain.RiskReport {
	state, err := s.chain.GetMintState(ctx, mint)
	if err != nil {
		s.logger.Error("mint state unavailable", zap.String("mint", mint), zap.Error(err))
		return Fallback(mint)
	}

	b := &builder{holders: []domain.TopHolder{}}

	b.authorities = domain.Authorities{
		MintAuthority:   state.MintAuthority,
		FreezeAuthority: state.FreezeAuthority,
	}
	if state.MintAuthority != nil {
		b.add(mintAuthorityPenalty, ReasonMintAuthority)
	} else {
		b.add(0, ReasonMintRevoked)
	}
	if state.FreezeAuthority != nil {
		b.add(freezeAuthorityPenalty, ReasonFreezeAuthority)
	} else {
		b.add(0, ReasonFreezeRevoked)
	}

	s.scoreHolders(ctx, mint, state.Supply, b)

	s.scoreMetadata(ctx, mint, b)

	score := domain.ClampScore(b.score)
	return &domain.RiskReport{
		Mint:        mint,
		Score:       score,
		Label:       domain.LabelForScore(score),
		Reasons:     b.reasons,
		Authorities: b.authorities,
		TopHolders:  b.holders,
	}
}

// scoreHolders applies the concentration tiers. The holder query always
// runs; with zero supply only the concentration math is skipped.
func (s *Scorer) scoreHolders(ctx context.Context, mint string, supply uint64, b *builder) {
	holders, err := s.chain.GetLargestHolders(ctx, mint)
	if err != nil {
		s.logger.Warn("largest holders unavailable", zap.String("mint", mint), zap.Error(err))
		b.add(holdersUnknownPenalty, ReasonHoldersUnavailable)
		return
	}
	if supply == 0 {
		return
	}

	if len(holders) > maxTopHolders {
		holders = holders[:maxTopHolders]
	}

	total := decimal.NewFromUint64(supply)
	topPct := decimal.Zero
	top5Pct := decimal.Zero
	for i, h := range holders {
		pct := decimal.NewFromUint64(h.Amount).Div(total).Mul(hundred)
		if i == 0 {
			topPct = pct
		}
		top5Pct = top5Pct.Add(pct)
		b.holders = append(b.holders, domain.TopHolder{
			Address:    h.Address,
			Percentage: pct.InexactFloat64(),
		})
	}

	switch {
	case topPct.GreaterThan(extremeThreshold):
		b.add(extremeConcentration, ReasonExtremeHolders)
	case topPct.GreaterThan(highThreshold):
		b.add(highConcentration, ReasonHighHolders)
	case topPct.GreaterThan(modThreshold):
		b.add(moderateConcentration, ReasonModerateHolders)
	default:
		b.add(0, ReasonDistributed)
	}

	if top5Pct.GreaterThan(top5Threshold) {
		b.add(top5Penalty, Top5Reason(top5Pct))
	}
}

// scoreMetadata checks for the Metaplex metadata account.
// Query failures are logged and add nothing.
func (s *Scorer) scoreMetadata(ctx context.Context, mint string, b *builder) {
	addr, err := solana.MetadataAddress(mint)
	if err != nil {
		s.logger.Warn("metadata address derivation failed", zap.String("mint", mint), zap.Error(err))
		return
	}

	exists, err := s.chain.AccountExists(ctx, addr)
	if err != nil {
		s.logger.Warn("metadata lookup failed", zap.String("mint", mint), zap.Error(err))
		return
	}
	if exists {
		b.add(0, ReasonMetadataExists)
	} else {
		b.add(noMetadataPenalty, ReasonNoMetadata)
	}
}

// Fallback is the report for a mint whose state cannot be read.
func Fallback(mint string) *domain.RiskReport {
	return &domain.RiskReport{
		Mint:        mint,
		Score:       fallbackScore,
		Label:       domain.LabelHigh,
		Reasons:     []string{ReasonCannotVerify},
		Authorities: domain.Authorities{},
		TopHolders:  []domain.TopHolder{},
	}
}

// Top5Reason formats the top-5 concentration reason with one decimal.
func Top5Reason(pct decimal.Decimal) string {
	return fmt.Sprintf("top 5 holders control %s%% of supply", pct.StringFixed(1))
}

type builder struct {
	score       int
	reasons     []string
	authorities domain.Authorities
	holders     []domain.TopHolder
}

func (b *builder) add(points int, reason string) {
	b.score += points
	b.reasons = append(b.reasons, reason)
}
