package domain

import (
	"context"
	"time"
)

// Reading is one value returned by a data source, in the variable's source
// units. Present is false when the source has no value for the date.
type Reading struct {
	Date    time.Time
	Value   float64
	Present bool
}

// FetchRequest asks a data source for one variable at one point on a set of dates.
type FetchRequest struct {
	Point    Point
	Variable Variable
	Dates    []time.Time
}

// DataSource yields readings for a variable at a location. Implementations
// may block on I/O; they should return one Reading per requested date.
type DataSource interface {
	// Name identifies the source in reports and metrics.
	Name() string

	// Fetch returns readings for the requested dates.
	Fetch(ctx context.Context, req FetchRequest) ([]Reading, error)
}
