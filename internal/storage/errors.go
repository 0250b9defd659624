package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConnected is returned by data operations on a store that is not connected.
var ErrNotConnected = errors.New("storage: not connected")

// ErrStoreClosed is returned when connecting a store that has been closed.
var ErrStoreClosed = errors.New("storage: store is closed")

// InvalidDocumentError lists every field of a run document that failed shape validation.
type InvalidDocumentError struct {
	Fields []string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid run document: missing or invalid %s", strings.Join(e.Fields, ", "))
}

// DuplicateRunIDError is returned when a run with the same id is already stored.
type DuplicateRunIDError struct {
	RunID string
	Cause error
}

func (e *DuplicateRunIDError) Error() string {
	return fmt.Sprintf("run %q already exists", e.RunID)
}

func (e *DuplicateRunIDError) Unwrap() error {
	return e.Cause
}

// UnsupportedProviderError is returned for an unknown DATABASE_PROVIDER value.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported database provider: %s (supported: %s, %s)", e.Provider, ProviderMongo, ProviderFirebase)
}

// MissingConfigurationError lists every required key that is not set for a provider.
type MissingConfigurationError struct {
	Provider Provider
	Keys     []string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("required %s configuration not set: %s", e.Provider, strings.Join(e.Keys, ", "))
}

// BackendError wraps a failure reported by the database driver.
type BackendError struct {
	Op    string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}
