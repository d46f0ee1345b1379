package jsonimport

import (
	"fmt"
	"time"
)

// Stage names one step of the import pipeline.
type Stage string

const (
	StageFileAccess  Stage = "file-access"
	StageContentRead Stage = "content-read"
	StageParse       Stage = "json-parse"
	StageStructure   Stage = "structural-validation"
	StageWindowID    Stage = "window-id"
	StageAdapt       Stage = "adapt"
	StageStore       Stage = "store-window"
	StageReferences  Stage = "reference-extraction"
)

// Stages lists the pipeline in execution order.
func Stages() []Stage {
	return []Stage{
		StageFileAccess,
		StageContentRead,
		StageParse,
		StageStructure,
		StageWindowID,
		StageAdapt,
		StageStore,
		StageReferences,
	}
}

// Diagnostic records the outcome of one stage.
type Diagnostic struct {
	Stage     Stage     `json:"stage"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportError aborts an import. It carries the full diagnostic log up to and
// including the failing stage.
type ImportError struct {
	Stage       Stage
	Diagnostics []Diagnostic
	Err         error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("json import: %s failed: %v", e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
