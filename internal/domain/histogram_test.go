package domain

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistogram_Degenerate(t *testing.T) {
	h := BuildHistogram([]float64{5, 5, 5, 5}, DefaultBins)

	require.Len(t, h.Counts, DefaultBins)
	assert.Equal(t, 4, h.Counts[0])
	assert.Equal(t, 4, h.Total())
	assert.Equal(t, 0.0, h.BinWidth)
	require.Len(t, h.BinEdges, DefaultBins+1)
	for _, e := range h.BinEdges {
		assert.Equal(t, 5.0, e)
	}
}

func TestBuildHistogram_MaxInLastBin(t *testing.T) {
	values := make([]float64, 0, 11)
	for i := 0; i <= 10; i++ {
		values = append(values, float64(i))
	}
	h := BuildHistogram(values, 10)

	assert.Equal(t, 1.0, h.BinWidth)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 2}, h.Counts)
	assert.Equal(t, 0.0, h.BinEdges[0])
	assert.Equal(t, 10.0, h.BinEdges[10])
}

func TestBuildHistogram_EdgesRoundedCountsExact(t *testing.T) {
	h := BuildHistogram([]float64{0, 1.0 / 3, 1}, 3)

	assert.Equal(t, []float64{0, 0.33, 0.67, 1}, h.BinEdges)
	assert.InDelta(t, 1.0/3, h.BinWidth, 1e-12)
	assert.Equal(t, 3, h.Total())
}

func TestBuildHistogram_Empty(t *testing.T) {
	h := BuildHistogram(nil, DefaultBins)
	assert.Len(t, h.Counts, DefaultBins)
	assert.Empty(t, h.BinEdges)
	assert.Zero(t, h.Total())
}

func TestBuildHistogram_DefaultBinCount(t *testing.T) {
	h := BuildHistogram([]float64{1, 2}, 0)
	assert.Len(t, h.Counts, DefaultBins)
}

func TestBuildHistogram_CountsSumToFiniteValues(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	for range 100 {
		values := randomValues(r, r.IntN(300))
		finite := len(values)
		for range r.IntN(5) {
			values = append(values, math.NaN(), math.Inf(-1))
		}

		h := BuildHistogram(values, DefaultBins)
		assert.Equal(t, finite, h.Total())
		assert.True(t, slices.IsSorted(h.BinEdges), "edges must be non-decreasing")
		for _, c := range h.Counts {
			assert.GreaterOrEqual(t, c, 0)
		}
	}
}
