package domain

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub sources ---

type constantSource struct {
	value    float64
	requests []FetchRequest
}

func (s *constantSource) Name() string { return "constant" }

func (s *constantSource) Fetch(_ context.Context, req FetchRequest) ([]Reading, error) {
	s.requests = append(s.requests, req)
	out := make([]Reading, len(req.Dates))
	for i, d := range req.Dates {
		out[i] = Reading{Date: d, Value: s.value, Present: true}
	}
	return out, nil
}

type sparseSource struct {
	readings []Reading
	err      error
}

func (s *sparseSource) Name() string { return "sparse" }

func (s *sparseSource) Fetch(_ context.Context, _ FetchRequest) ([]Reading, error) {
	return s.readings, s.err
}

func temperature(t *testing.T) Variable {
	t.Helper()
	v, err := DefaultRegistry().Lookup("temperature")
	require.NoError(t, err)
	return v
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- tests ---

func TestWindowSpec_Dates_WrapIntoPriorYear(t *testing.T) {
	w := WindowSpec{TargetDay: 1, WindowDays: 3, Years: YearRange{Start: 1982, End: 1983}}
	dates := w.Dates()
	require.Len(t, dates, 14)

	for i, year := range []int{1982, 1983} {
		perYear := dates[i*7 : (i+1)*7]
		assert.Equal(t, year-1, perYear[0].Year())
		assert.Equal(t, 363, perYear[0].YearDay())
		assert.Equal(t, 364, perYear[1].YearDay())
		assert.Equal(t, 365, perYear[2].YearDay())
		for j, d := range perYear[3:] {
			assert.Equal(t, year, d.Year())
			assert.Equal(t, j+1, d.YearDay())
		}
	}
}

func TestWindowSpec_Dates_LeapPriorYearKeepsCalendarContinuity(t *testing.T) {
	w := WindowSpec{TargetDay: 1, WindowDays: 3, Years: YearRange{Start: 1981, End: 1981}}
	dates := w.Dates()
	require.Len(t, dates, 7)

	assert.Equal(t, date(1980, time.December, 29), dates[0])
	assert.Equal(t, 364, dates[0].YearDay())
	assert.Equal(t, date(1980, time.December, 31), dates[2])
	assert.Equal(t, 366, dates[2].YearDay())
	assert.Equal(t, date(1981, time.January, 4), dates[6])
}

func TestWindowSpec_Dates_WrapIntoNextYear(t *testing.T) {
	w := WindowSpec{TargetDay: 364, WindowDays: 3, Years: YearRange{Start: 1985, End: 1985}}
	dates := w.Dates()
	require.Len(t, dates, 7)

	assert.Equal(t, date(1985, time.December, 27), dates[0])
	assert.Equal(t, date(1985, time.December, 31), dates[4])
	assert.Equal(t, date(1986, time.January, 1), dates[5])
	assert.Equal(t, date(1986, time.January, 2), dates[6])
}

func TestWindowSpec_Dates_Day366(t *testing.T) {
	leap := WindowSpec{TargetDay: 366, Years: YearRange{Start: 1984, End: 1984}}.Dates()
	assert.Equal(t, []time.Time{date(1984, time.December, 31)}, leap)

	common := WindowSpec{TargetDay: 366, Years: YearRange{Start: 1985, End: 1985}}.Dates()
	assert.Equal(t, []time.Time{date(1986, time.January, 1)}, common)
}

func TestWindowSpec_Dates_EdgeCases(t *testing.T) {
	t.Run("zero window yields one date per year", func(t *testing.T) {
		w := WindowSpec{TargetDay: 100, WindowDays: 0, Years: YearRange{Start: 1990, End: 1994}}
		dates := w.Dates()
		require.Len(t, dates, 5)
		for i, d := range dates {
			assert.Equal(t, 1990+i, d.Year())
			assert.Equal(t, 100, d.YearDay())
		}
	})

	t.Run("single year", func(t *testing.T) {
		w := WindowSpec{TargetDay: 185, WindowDays: 7, Years: YearRange{Start: 2000, End: 2000}}
		assert.Len(t, w.Dates(), 15)
	})

	t.Run("inverted range yields nothing", func(t *testing.T) {
		w := WindowSpec{TargetDay: 185, WindowDays: 7, Years: YearRange{Start: 2001, End: 2000}}
		assert.Empty(t, w.Dates())
	})
}

func TestWindowSpec_Validate(t *testing.T) {
	valid := WindowSpec{TargetDay: 185, WindowDays: 7, Years: YearRange{Start: 1980, End: 1990}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(w *WindowSpec)
	}{
		{"target day zero", func(w *WindowSpec) { w.TargetDay = 0 }},
		{"target day 367", func(w *WindowSpec) { w.TargetDay = 367 }},
		{"negative window", func(w *WindowSpec) { w.WindowDays = -1 }},
		{"window too wide", func(w *WindowSpec) { w.WindowDays = MaxWindowDays + 1 }},
		{"inverted years", func(w *WindowSpec) { w.Years = YearRange{Start: 1990, End: 1980} }},
		{"before archive", func(w *WindowSpec) { w.Years.Start = MinYear - 1 }},
		{"future year", func(w *WindowSpec) { w.Years.End = 3000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid
			tt.mutate(&w)
			err := w.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
		})
	}
}

func TestDaysInYear(t *testing.T) {
	assert.Equal(t, 366, DaysInYear(1980))
	assert.Equal(t, 365, DaysInYear(1981))
	assert.Equal(t, 365, DaysInYear(1900))
	assert.Equal(t, 366, DaysInYear(2000))
}

func TestNewSample(t *testing.T) {
	s := NewSample(date(1980, time.July, 3), 21.5, true)
	assert.True(t, s.Valid())
	assert.Equal(t, 1980, s.Year)
	assert.Equal(t, 185, s.DayOfYear)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := NewSample(date(1980, time.July, 3), v, true)
		assert.False(t, s.Valid())
		assert.False(t, s.Present)
	}
}

func TestAssemble_BatchesAndConverts(t *testing.T) {
	src := &constantSource{value: 36}
	wind, err := DefaultRegistry().Lookup("wind_speed")
	require.NoError(t, err)

	q := Query{
		Point:    Point{Lat: 40, Lon: -105},
		Variable: "wind_speed",
		Window:   WindowSpec{TargetDay: 10, WindowDays: 2, Years: YearRange{Start: 1990, End: 1992}},
	}
	samples, err := Assemble(context.Background(), src, q, wind)
	require.NoError(t, err)

	require.Len(t, src.requests, 1, "all dates should be fetched in one batch")
	assert.Len(t, src.requests[0].Dates, 15)
	assert.Equal(t, q.Point, src.requests[0].Point)
	require.Len(t, samples, 15)
	for _, s := range samples {
		assert.True(t, s.Valid())
		assert.InDelta(t, 10.0, s.Value, 1e-12, "36 km/h should convert to 10 m/s")
	}
}

func TestAssemble_MissingDatesRetained(t *testing.T) {
	src := &sparseSource{readings: []Reading{
		{Date: date(1990, time.January, 10), Value: 5, Present: true},
		{Date: date(1990, time.January, 11), Present: false},
	}}
	q := Query{Window: WindowSpec{TargetDay: 10, WindowDays: 1, Years: YearRange{Start: 1990, End: 1990}}}

	samples, err := Assemble(context.Background(), src, q, temperature(t))
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.False(t, samples[0].Valid(), "Jan 9 was not returned")
	assert.True(t, samples[1].Valid())
	assert.Equal(t, 5.0, samples[1].Value)
	assert.False(t, samples[2].Valid(), "Jan 11 was returned without a value")
}

func TestAssemble_SourceError(t *testing.T) {
	src := &sparseSource{err: errors.New("upstream down")}
	q := Query{Window: WindowSpec{TargetDay: 10, Years: YearRange{Start: 1990, End: 1990}}}

	_, err := Assemble(context.Background(), src, q, temperature(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestEndToEnd_ConstantSource(t *testing.T) {
	v := temperature(t)
	threshold := 19.0
	q := Query{
		Point:     Point{Lat: 45, Lon: 7},
		Variable:  "temperature",
		Window:    WindowSpec{TargetDay: 185, WindowDays: 7, Years: YearRange{Start: 1980, End: 1983}},
		Threshold: &threshold,
	}
	require.NoError(t, q.Validate())

	samples, err := Assemble(context.Background(), &constantSource{value: 20}, q, v)
	require.NoError(t, err)
	require.Len(t, samples, 4*15)

	s := ComputeStats(samples, q.Threshold)
	assert.Equal(t, 60, s.Count)
	assert.Equal(t, 20.0, s.Mean)
	assert.Equal(t, 20.0, s.Median)
	assert.Equal(t, 0.0, s.Std)
	require.NotNil(t, s.Exceedance)
	assert.Equal(t, 1.0, s.Exceedance.Probability)
	assert.Equal(t, 60, s.Exceedance.Count)
	assert.Equal(t, 100.0, s.Exceedance.Percentage)

	trend := AnalyzeTrend(samples)
	assert.Equal(t, DirectionStable, trend.Direction)
	assert.Equal(t, 0.0, trend.Slope)

	quality := AssessQuality(samples)
	assert.Equal(t, TierGood, quality.Tier)
	assert.Equal(t, 0, quality.Missing)
}
