package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/schema"
)

// RecordReader is the lookup half of a record store.
type RecordReader interface {
	Get(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error)
	Latest(ctx context.Context, windowID string) (schema.FormDataRecord, error)
}

// FetchRecord implements GetFormData for providers backed by a record store.
// An empty recordID selects the latest record. Missing records are reported
// as ErrRecordNotFound, prefixed with label.
func FetchRecord(ctx context.Context, store RecordReader, label, windowID, recordID string) (schema.FormDataRecord, error) {
	var (
		record schema.FormDataRecord
		err    error
	)
	if strings.TrimSpace(recordID) == "" {
		record, err = store.Latest(ctx, windowID)
	} else {
		record, err = store.Get(ctx, windowID, recordID)
	}
	if errors.Is(err, formstore.ErrNotFound) {
		return schema.FormDataRecord{}, fmt.Errorf("%s: window %q record %q: %w", label, windowID, recordID, ErrRecordNotFound)
	}
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("%s: window %q: %w", label, windowID, err)
	}
	return record, nil
}
