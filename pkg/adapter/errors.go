package adapter

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument is returned when the raw payload carries no content.
var ErrEmptyDocument = errors.New("adapter: empty document")

// ParseError reports a payload that is not valid JSON or not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("adapter: parse window document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AdaptationError identifies the malformed tab or field of an external
// document. Indexes are zero based; -1 means the level does not apply.
type AdaptationError struct {
	TabIndex   int
	FieldIndex int
	Reason     string
}

func (e *AdaptationError) Error() string {
	switch {
	case e.TabIndex < 0:
		return fmt.Sprintf("adapter: window: %s", e.Reason)
	case e.FieldIndex < 0:
		return fmt.Sprintf("adapter: tab[%d]: %s", e.TabIndex, e.Reason)
	default:
		return fmt.Sprintf("adapter: tab[%d].field[%d]: %s", e.TabIndex, e.FieldIndex, e.Reason)
	}
}

func windowError(format string, args ...any) error {
	return &AdaptationError{TabIndex: -1, FieldIndex: -1, Reason: fmt.Sprintf(format, args...)}
}

func tabError(tab int, format string, args ...any) error {
	return &AdaptationError{TabIndex: tab, FieldIndex: -1, Reason: fmt.Sprintf(format, args...)}
}

func fieldError(tab, field int, format string, args ...any) error {
	return &AdaptationError{TabIndex: tab, FieldIndex: field, Reason: fmt.Sprintf(format, args...)}
}
