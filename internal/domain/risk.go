package domain

// Label is the coarse risk bucket derived from a score.
type Label string

const (
	LabelLow  Label = "LOW"
	LabelMed  Label = "MED"
	LabelHigh Label = "HIGH"
)

// Score bounds and label thresholds.
const (
	MinScore = 0
	MaxScore = 100

	HighScoreThreshold = 60
	MedScoreThreshold  = 30
)

// ClampScore bounds score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// LabelForScore maps a score to its label.
func LabelForScore(score int) Label {
	switch {
	case score >= HighScoreThreshold:
		return LabelHigh
	case score >= MedScoreThreshold:
		return LabelMed
	default:
		return LabelLow
	}
}

// IsValid checks if the label is a known value.
func (l Label) IsValid() bool {
	return l == LabelLow || l == LabelMed || l == LabelHigh
}

// Authorities lists the optional privileged keys of a mint.
type Authorities struct {
	MintAuthority   *string `json:"mintAuthority,omitempty"`
	FreezeAuthority *string `json:"freezeAuthority,omitempty"`
}

// TopHolder is a token account and its share of total supply in percent.
type TopHolder struct {
	Address    string  `json:"address"`
	Percentage float64 `json:"percentage"`
}

// RiskReport is the scored assessment of a mint.
// Corresponds to risk_reports table in PostgreSQL. Replaced wholesale on recomputation.
// Reasons are kept in computation order; TopHolders is sorted descending by holding.
type RiskReport struct {
	Mint        string      `json:"mint"`
	Score       int         `json:"score"`
	Label       Label       `json:"label"`
	Reasons     []string    `json:"reasons"`
	Authorities Authorities `json:"authorities"`
	TopHolders  []TopHolder `json:"topHolders"`
	ComputedAt  int64       `json:"computedAt"` // unix ms
}
