// Package domain computes historical exceedance statistics for a single
// climate variable at a point location.
//
// # Sampling Window
//
// A query names a target day-of-year, a symmetric ± day window and an
// inclusive year range. For every year in the range and every offset in
// [target-window, target+window] exactly one UTC calendar date is sampled:
//
//	date = Jan 1 of year + (offset - 1) days
//
// Offsets below 1 roll back into the previous year and offsets past the end
// of the year roll forward into the next one, using the real length of the
// neighbouring year. For a non-leap prior year, target 1 with a 3-day window
// samples days 363, 364 and 365 of the prior year followed by days 1–4.
// Day 366 is a valid target and maps to Dec 31 in leap years; in common
// years it rolls over to Jan 1 of the following year.
//
// # Missing Values
//
// A data source yields one reading per requested date. Absent or non-finite
// values are kept as samples with Present=false so that quality assessment
// can count them; every numeric aggregation skips them.
//
// # Aggregations
//
// Statistics, histogram, trend, quality and narrative are pure functions over
// the same read-only []Sample:
//
//	ComputeStats   count, mean, median, population std, min/max, percentiles,
//	               exceedance against an optional threshold (strict >)
//	BuildHistogram 20 equal-width bins, max value clamped into the last bin
//	AnalyzeTrend   OLS of yearly mean against calendar year
//	AssessQuality  missing-value percentage and good/fair/poor tier
//	Summarize      one human-readable sentence
//
// Empty and all-missing sample sets produce a StatsResult with Count 0 and
// NoData set; callers map that to [ErrInsufficientData].
package domain
