package topics

import "fmt"

// InsufficientYieldError is returned when too few candidates survive validation.
type InsufficientYieldError struct {
	Valid     int
	Requested int
	Required  int
}

func (e *InsufficientYieldError) Error() string {
	return fmt.Sprintf("too few valid topics generated: %d/%d (need at least %d)", e.Valid, e.Requested, e.Required)
}

// RejectionError explains why a single candidate was dropped.
type RejectionError struct {
	Index   int
	Field   string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("topic %d rejected: %s: %s", e.Index+1, e.Field, e.Message)
}
