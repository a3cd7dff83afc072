package domain

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Direction is the sign of a fitted trend.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// YearlyMean is the mean of one calendar year's valid values.
type YearlyMean struct {
	Year  int     `json:"year"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// TrendResult is a least-squares fit of yearly mean against year. Slope is in
// display units per year; the Text fields are fixed-precision renderings.
type TrendResult struct {
	YearlyMeans         []YearlyMean `json:"yearly_means"`
	Slope               float64      `json:"slope_value"`
	Intercept           float64      `json:"intercept"`
	RSquared            float64      `json:"r_squared"`
	Direction           Direction    `json:"direction"`
	ChangePerDecade     float64      `json:"change_per_decade_value"`
	SlopeText           string       `json:"slope"`
	ChangePerDecadeText string       `json:"change_per_decade"`
}

// AnalyzeTrend groups samples by calendar year and fits an ordinary
// least-squares line through the yearly means. Years without a valid value
// are left out. With fewer than two years the slope is 0 and the direction
// stable.
func AnalyzeTrend(samples []Sample) TrendResult {
	type yearAcc struct {
		sum   float64
		count int
	}
	byYear := make(map[int]*yearAcc)
	for _, s := range samples {
		if !s.Valid() {
			continue
		}
		acc, ok := byYear[s.Year]
		if !ok {
			acc = &yearAcc{}
			byYear[s.Year] = acc
		}
		acc.sum += s.Value
		acc.count++
	}

	years := slices.Sorted(maps.Keys(byYear))
	means := make([]YearlyMean, 0, len(years))
	xs := make([]float64, 0, len(years))
	ys := make([]float64, 0, len(years))
	for _, y := range years {
		acc := byYear[y]
		mean := acc.sum / float64(acc.count)
		means = append(means, YearlyMean{Year: y, Mean: mean, Count: acc.count})
		xs = append(xs, float64(y))
		ys = append(ys, mean)
	}

	result := TrendResult{YearlyMeans: means}
	if len(means) >= 2 {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		result.Slope = finiteOrZero(beta)
		result.Intercept = finiteOrZero(alpha)
		result.RSquared = finiteOrZero(stat.RSquared(xs, ys, nil, alpha, beta))
	}

	result.Direction = directionOf(result.Slope)
	result.ChangePerDecade = result.Slope * 10
	result.SlopeText = strconv.FormatFloat(result.Slope, 'f', 4, 64)
	result.ChangePerDecadeText = strconv.FormatFloat(result.ChangePerDecade, 'f', 2, 64)
	return result
}

func directionOf(slope float64) Direction {
	switch {
	case slope > 0:
		return DirectionIncreasing
	case slope < 0:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
