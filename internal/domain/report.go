package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report combines every aggregation computed for one query.
type Report struct {
	ID          string        `json:"id"`
	Query       Query         `json:"query"`
	Variable    Variable      `json:"variable"`
	Stats       StatsResult   `json:"stats"`
	Trend       TrendResult   `json:"trend"`
	Quality     QualityResult `json:"quality"`
	Summary     string        `json:"summary"`
	Source      string        `json:"source"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// NewReport assembles a report from independently computed fragments and
// renders the narrative summary. Non-finite thresholds are dropped from the
// stored query so the report stays serializable.
func NewReport(q Query, v Variable, source string, s StatsResult, t TrendResult, qr QualityResult) Report {
	summary := Summarize(s, v, q.Threshold)
	if q.Threshold != nil && !q.HasValidThreshold() {
		q.Threshold = nil
	}
	return Report{
		ID:          uuid.NewString(),
		Query:       q,
		Variable:    v,
		Stats:       s,
		Trend:       t,
		Quality:     qr,
		Summary:     summary,
		Source:      source,
		GeneratedAt: clock.Now().UTC(),
	}
}

// HasData reports whether the report was computed from at least one valid value.
func (r Report) HasData() bool {
	return r.Stats.Count > 0
}
