package pipeline

import "fmt"

// RequestError is returned when a generation request is rejected before any work is done.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}
