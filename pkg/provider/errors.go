package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWindowNotFound is returned when no window exists for the id.
	ErrWindowNotFound = errors.New("provider: window not found")
	// ErrRecordNotFound is returned when no form record matches.
	ErrRecordNotFound = errors.New("provider: record not found")
	// ErrReferenceNotFound marks an unknown reference id. Providers log it and
	// return an empty list; it only surfaces from lower-level lookups.
	ErrReferenceNotFound = errors.New("provider: reference not found")
)

// StructuralValidationError lists every structural problem found in a window
// document before adaptation was attempted.
type StructuralValidationError struct {
	Problems []string
}

func (e *StructuralValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "provider: structural validation failed"
	}
	return fmt.Sprintf("provider: structural validation failed: %s", strings.Join(e.Problems, "; "))
}

// NetworkError wraps a transport failure or an unexpected HTTP status. It is
// recoverable: the connection monitor degrades instead of failing.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("provider: %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("provider: %s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("provider: %s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err carries a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
