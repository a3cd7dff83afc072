package domain

import "errors"

var (
	// ErrInvalidQuery is returned when a query or window is out of range.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownVariable is returned when a variable name is not registered.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInsufficientData signals that no valid values were found for a query.
	// It covers both an empty sample set and one where every value is missing.
	ErrInsufficientData = errors.New("insufficient data")
)
