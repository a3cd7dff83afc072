package domain

import (
	"math"
	"slices"
)

// DefaultBins is the number of bins in every reported distribution.
const DefaultBins = 20

// Histogram partitions values into equal-width bins. BinEdges has one more
// element than Counts and is rounded to 2 decimals for presentation.
type Histogram struct {
	BinEdges []float64 `json:"bin_edges"`
	Counts   []int     `json:"counts"`
	BinWidth float64   `json:"bin_width"`
}

// Total returns the number of values counted across all bins.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// BuildHistogram counts the finite values into numBins equal-width bins
// spanning [min, max]. The maximum lands in the last bin. When every value is
// identical the width is 0 and all values go to bin 0.
func BuildHistogram(values []float64, numBins int) Histogram {
	if numBins <= 0 {
		numBins = DefaultBins
	}
	counts := make([]int, numBins)

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Histogram{Counts: counts}
	}

	lo, hi := slices.Min(finite), slices.Max(finite)
	width := (hi - lo) / float64(numBins)

	for _, v := range finite {
		counts[binIndex(v, lo, width, numBins)]++
	}

	edges := make([]float64, numBins+1)
	for i := range edges {
		edges[i] = roundTo(lo+float64(i)*width, 2)
	}

	return Histogram{BinEdges: edges, Counts: counts, BinWidth: width}
}

func binIndex(v, lo, width float64, numBins int) int {
	if width == 0 {
		return 0
	}
	i := int(math.Floor((v - lo) / width))
	return min(max(i, 0), numBins-1)
}
