package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is one exceedance question: a variable at a point over a sampling window.
type Query struct {
	Point     Point      `json:"point"`
	Variable  string     `json:"variable"`
	Window    WindowSpec `json:"window"`
	Threshold *float64   `json:"threshold,omitempty"`
}

// Validate checks coordinates, variable name and window bounds. NaN
// coordinates are rejected.
func (q Query) Validate() error {
	if !(q.Point.Lat >= -90 && q.Point.Lat <= 90) {
		return fmt.Errorf("%w: latitude %g outside -90..90", ErrInvalidQuery, q.Point.Lat)
	}
	if !(q.Point.Lon >= -180 && q.Point.Lon <= 180) {
		return fmt.Errorf("%w: longitude %g outside -180..180", ErrInvalidQuery, q.Point.Lon)
	}
	if strings.TrimSpace(q.Variable) == "" {
		return fmt.Errorf("%w: variable is required", ErrInvalidQuery)
	}
	return q.Window.Validate()
}

// HasValidThreshold reports whether a finite threshold was supplied.
func (q Query) HasValidThreshold() bool {
	return q.Threshold != nil && isFinite(*q.Threshold)
}

// CacheKey returns a deterministic key for the query. Coordinates are fixed
// at 4 decimals (about 11 m) so that equivalent requests share an entry.
func (q Query) CacheKey() string {
	threshold := "-"
	if q.Threshold != nil {
		threshold = strconv.FormatFloat(*q.Threshold, 'g', -1, 64)
	}
	return fmt.Sprintf("v1|%.4f|%.4f|%s|%d|%d|%d-%d|%s",
		q.Point.Lat, q.Point.Lon,
		strings.ToLower(strings.TrimSpace(q.Variable)),
		q.Window.TargetDay, q.Window.WindowDays,
		q.Window.Years.Start, q.Window.Years.End,
		threshold,
	)
}
