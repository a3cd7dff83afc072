package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	// MinYear is the first year covered by the reanalysis archive.
	MinYear = 1940

	// MaxWindowDays bounds the ± day window around the target day.
	MaxWindowDays = 30
)

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of years in the range, or 0 when End precedes Start.
func (r YearRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// WindowSpec fully determines which dates are sampled for a query.
type WindowSpec struct {
	TargetDay  int       `json:"target_day"`
	WindowDays int       `json:"window_days"`
	Years      YearRange `json:"years"`
}

// Validate checks the window against the supported bounds.
func (w WindowSpec) Validate() error {
	maxYear := clock.Now().UTC().Year()

	switch {
	case w.TargetDay < 1 || w.TargetDay > 366:
		return fmt.Errorf("%w: target day %d outside 1-366", ErrInvalidQuery, w.TargetDay)
	case w.WindowDays < 0 || w.WindowDays > MaxWindowDays:
		return fmt.Errorf("%w: window of %d days outside 0-%d", ErrInvalidQuery, w.WindowDays, MaxWindowDays)
	case w.Years.Start > w.Years.End:
		return fmt.Errorf("%w: start year %d after end year %d", ErrInvalidQuery, w.Years.Start, w.Years.End)
	case w.Years.Start < MinYear || w.Years.End > maxYear:
		return fmt.Errorf("%w: years %d-%d outside %d-%d", ErrInvalidQuery, w.Years.Start, w.Years.End, MinYear, maxYear)
	}
	return nil
}

// Dates enumerates one calendar date per (year, offset) pair, year-major.
func (w WindowSpec) Dates() []time.Time {
	n := w.Years.Len()
	if n == 0 || w.WindowDays < 0 {
		return nil
	}

	dates := make([]time.Time, 0, n*(2*w.WindowDays+1))
	for year := w.Years.Start; year <= w.Years.End; year++ {
		for offset := w.TargetDay - w.WindowDays; offset <= w.TargetDay+w.WindowDays; offset++ {
			dates = append(dates, DateFromDayOfYear(year, offset))
		}
	}
	return dates
}

// DateFromDayOfYear converts a day-of-year to a UTC date. Days below 1 or past
// the end of the year roll into the neighbouring year using its real length.
func DateFromDayOfYear(year, day int) time.Time {
	return time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// Sample is one dated observation. Samples are values; nothing mutates them
// after Assemble returns.
type Sample struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Present   bool      `json:"present"`
	Year      int       `json:"year"`
	DayOfYear int       `json:"day_of_year"`
}

// NewSample builds a Sample for date. Non-finite values are recorded as absent.
func NewSample(date time.Time, value float64, present bool) Sample {
	date = date.UTC()
	if !present || !isFinite(value) {
		value, present = 0, false
	}
	return Sample{
		Date:      date,
		Value:     value,
		Present:   present,
		Year:      date.Year(),
		DayOfYear: date.YearDay(),
	}
}

// Valid reports whether the sample carries a usable numeric value.
func (s Sample) Valid() bool {
	return s.Present && isFinite(s.Value)
}

// Assemble requests every date of the query window from source in a single
// batch, converts present values to display units and returns one Sample per
// requested date. Dates the source does not answer are recorded as missing.
func Assemble(ctx context.Context, source DataSource, q Query, v Variable) ([]Sample, error) {
	dates := q.Window.Dates()
	if len(dates) == 0 {
		return nil, nil
	}

	readings, err := source.Fetch(ctx, FetchRequest{Point: q.Point, Variable: v, Dates: dates})
	if err != nil {
		return nil, fmt.Errorf("fetch %s readings: %w", v.Name, err)
	}

	byDay := make(map[string]Reading, len(readings))
	for _, r := range readings {
		byDay[dayKey(r.Date)] = r
	}

	samples := make([]Sample, 0, len(dates))
	for _, d := range dates {
		r, ok := byDay[dayKey(d)]
		if !ok || !r.Present {
			samples = append(samples, NewSample(d, 0, false))
			continue
		}
		samples = append(samples, NewSample(d, v.ToDisplay(r.Value), true))
	}
	return samples, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
