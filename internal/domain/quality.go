package domain

import "fmt"

// Tier is a coarse completeness grade for a sample set.
type Tier string

const (
	TierGood Tier = "good"
	TierFair Tier = "fair"
	TierPoor Tier = "poor"
)

// Missing-value percentages at which the tier drops.
const (
	fairMissingPercent = 10
	poorMissingPercent = 30
)

// QualityResult reports how many requested days carried a valid value.
type QualityResult struct {
	Total          int     `json:"total"`
	Valid          int     `json:"valid"`
	Missing        int     `json:"missing"`
	MissingPercent float64 `json:"missing_percent"`
	Tier           Tier    `json:"tier"`
	Warning        string  `json:"warning,omitempty"`
}

// AssessQuality grades completeness: good below 10% missing, fair below 30%,
// poor otherwise. A warning is attached above 30%. An empty sample set counts
// as entirely missing.
func AssessQuality(samples []Sample) QualityResult {
	total := len(samples)
	if total == 0 {
		return QualityResult{
			MissingPercent: 100,
			Tier:           TierPoor,
			Warning:        "no samples were assembled for the requested window",
		}
	}

	valid := 0
	for _, s := range samples {
		if s.Valid() {
			valid++
		}
	}
	missing := total - valid
	pct := roundTo(float64(missing)/float64(total)*100, 1)

	q := QualityResult{
		Total:          total,
		Valid:          valid,
		Missing:        missing,
		MissingPercent: pct,
	}
	switch {
	case pct < fairMissingPercent:
		q.Tier = TierGood
	case pct < poorMissingPercent:
		q.Tier = TierFair
	default:
		q.Tier = TierPoor
	}
	if pct > poorMissingPercent {
		q.Warning = fmt.Sprintf("%.1f%% of requested days have no valid value; results may be unreliable", pct)
	}
	return q
}
