// internal/model/errors.go
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidReading is returned when a submitted reading is missing required
// fields or carries a non-finite value. One bad reading never aborts the rest
// of its snapshot.
var ErrInvalidReading = errors.New("invalid sensor reading")

// ErrInfeasibleRequest is returned when the optimization constraint set cannot
// be jointly satisfied. Constraints are never silently relaxed.
var ErrInfeasibleRequest = errors.New("infeasible optimization request")

// ErrTimeout is returned when an optimization call exceeds its deadline.
// Optimization calls are pure, so retrying with identical inputs is safe.
var ErrTimeout = errors.New("optimization deadline exceeded")

// ErrUnknownUnit is returned when a query references a unit identifier the
// coordinator does not track.
var ErrUnknownUnit = errors.New("unknown unit")

// ErrInsufficientHistory is returned when the persisted window is too short
// for a trend-based computation. The caller retries once more data has
// accumulated.
var ErrInsufficientHistory = errors.New("insufficient historical data")

// InfeasibleError names the binding constraint that made a request unsolvable.
type InfeasibleError struct {
	Constraint string
	Detail     string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrInfeasibleRequest, e.Constraint, e.Detail)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasibleRequest }

// InvalidReadingError carries the offending reading's identity so the intake
// layer can report the rejection without losing the rest of the snapshot.
type InvalidReadingError struct {
	Unit   UnitID
	Sensor string
	Reason string
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("%v: %s/%s: %s", ErrInvalidReading, e.Unit, e.Sensor, e.Reason)
}

func (e *InvalidReadingError) Unwrap() error { return ErrInvalidReading }
