package domain

import (
	"math"
	"slices"

	"github.com/montanaflynn/stats"
)

// Percentiles holds the order statistics reported for every query.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Exceedance is the share of valid values strictly greater than Threshold.
type Exceedance struct {
	Threshold   float64 `json:"threshold"`
	Probability float64 `json:"probability"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// StatsResult is the descriptive summary of a sample set. When Count is 0,
// NoData is set and every numeric field is zero.
type StatsResult struct {
	Count        int         `json:"count"`
	NoData       bool        `json:"no_data,omitempty"`
	Mean         float64     `json:"mean"`
	Median       float64     `json:"median"`
	Std          float64     `json:"std"`
	Min          float64     `json:"min"`
	Max          float64     `json:"max"`
	Percentiles  Percentiles `json:"percentiles"`
	Exceedance   *Exceedance `json:"exceedance,omitempty"`
	Distribution Histogram   `json:"distribution"`
}

// ValidValues returns the finite values of present samples, in sample order.
func ValidValues(samples []Sample) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Valid() {
			values = append(values, s.Value)
		}
	}
	return values
}

// ComputeStats summarizes the valid values in samples. The exceedance block is
// filled only when threshold is non-nil and finite; zero is a valid threshold.
func ComputeStats(samples []Sample, threshold *float64) StatsResult {
	values := ValidValues(samples)
	if len(values) == 0 {
		return StatsResult{NoData: true, Distribution: BuildHistogram(nil, DefaultBins)}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	// Inputs are non-empty, the only error condition these functions report.
	mean, _ := stats.Mean(sorted)
	median, _ := stats.Median(sorted)
	std, _ := stats.StandardDeviationPopulation(sorted)

	return StatsResult{
		Count:  len(sorted),
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Percentiles: Percentiles{
			P10: Percentile(sorted, 10),
			P25: Percentile(sorted, 25),
			P50: Percentile(sorted, 50),
			P75: Percentile(sorted, 75),
			P90: Percentile(sorted, 90),
			P95: Percentile(sorted, 95),
			P99: Percentile(sorted, 99),
		},
		Exceedance:   computeExceedance(sorted, threshold),
		Distribution: BuildHistogram(values, DefaultBins),
	}
}

// Percentile returns the p-th percentile (0-100) of an ascending slice using
// linear interpolation between the closest ranks at index p/100*(n-1).
// Returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = math.Min(math.Max(p, 0), 100)

	idx := p / 100 * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= n {
		return sorted[lower]
	}

	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func computeExceedance(values []float64, threshold *float64) *Exceedance {
	if threshold == nil || !isFinite(*threshold) || len(values) == 0 {
		return nil
	}
	t := *threshold

	count := 0
	for _, v := range values {
		if v > t {
			count++
		}
	}
	probability := float64(count) / float64(len(values))

	return &Exceedance{
		Threshold:   t,
		Probability: probability,
		Count:       count,
		Percentage:  roundTo(probability*100, 1),
	}
}
