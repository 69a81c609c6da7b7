package contracts

import (
	"fmt"
	"time"
)

// SchemaError reports a required field that no panel row carries.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: required field %q is absent from the panel", e.Field)
}

// InvalidHorizonError reports an unusable horizon request.
type InvalidHorizonError struct {
	Horizons []int
	Reason   string
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("invalid horizon %v: %s", e.Horizons, e.Reason)
}

// InsufficientDataError reports a cross-section too small for a computation.
// It is recovered locally by excluding the date.
type InsufficientDataError struct {
	Date time.Time
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data on %s: have %d, need %d", e.Date.Format("2006-01-02"), e.Have, e.Need)
}
