package collector

import "errors"

var (
	// ErrAborted signals the user interrupted the session (Ctrl+C).
	ErrAborted = errors.New("collector: aborted")
	// ErrNoDriver is returned when the collector has no prompt driver.
	ErrNoDriver = errors.New("collector: prompt driver is nil")
)
