// Package formstore persists filled-in form records for providers. Memory
// keeps records for the process lifetime; Badger stores them on disk.
package formstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/red1oon/ADUI/pkg/schema"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("formstore: record not found")

// Store saves and retrieves form records grouped by window.
type Store interface {
	// Save assigns a record id when absent, stamps timestamps and stores a
	// copy. The stored record is returned.
	Save(ctx context.Context, record schema.FormDataRecord) (schema.FormDataRecord, error)
	Get(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error)
	// Latest returns the most recently saved record of the window.
	Latest(ctx context.Context, windowID string) (schema.FormDataRecord, error)
	// List returns the window's records ordered by creation time.
	List(ctx context.Context, windowID string) ([]schema.FormDataRecord, error)
	Close() error
}

// stamp fills the bookkeeping fields of a record before it is stored.
func stamp(record schema.FormDataRecord, now time.Time) (schema.FormDataRecord, error) {
	out := record.Clone()
	out.WindowID = strings.TrimSpace(out.WindowID)
	if out.WindowID == "" {
		return schema.FormDataRecord{}, errors.New("formstore: window id is required")
	}
	if strings.TrimSpace(out.RecordID) == "" {
		out.RecordID = uuid.NewString()
	}
	if out.Metadata.Created.IsZero() {
		out.Metadata.Created = now
	}
	out.Metadata.Modified = now
	if out.Metadata.Status == "" {
		out.Metadata.Status = schema.RecordStatusDraft
	}
	if !out.Metadata.Status.Valid() {
		return schema.FormDataRecord{}, errors.New("formstore: unknown record status " + string(out.Metadata.Status))
	}
	return out, nil
}
