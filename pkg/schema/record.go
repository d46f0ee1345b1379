package schema

import (
	"fmt"
	"time"
)

// RecordStatus tracks where a submitted form sits in its workflow.
type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusSubmitted RecordStatus = "submitted"
	RecordStatusApproved  RecordStatus = "approved"
)

// Valid reports whether the status is one of the known workflow states.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStatusDraft, RecordStatusSubmitted, RecordStatusApproved:
		return true
	default:
		return false
	}
}

// RecordMetadata carries timestamps and workflow status for a record.
type RecordMetadata struct {
	Created  time.Time    `json:"created"`
	Modified time.Time    `json:"modified"`
	Status   RecordStatus `json:"status"`
}

// FieldValue pairs the stored value with its human readable rendering.
// Metadata holds component annotations such as media type or collected items.
type FieldValue struct {
	Raw      any            `json:"raw"`
	Display  string         `json:"display"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FormDataRecord is one filled-in instance of a window.
type FormDataRecord struct {
	RecordID string                `json:"recordId,omitempty"`
	WindowID string                `json:"windowId"`
	Values   map[string]FieldValue `json:"values"`
	Metadata RecordMetadata        `json:"metadata"`
}

// NewRecord constructs an empty draft record for the window.
func NewRecord(windowID string) FormDataRecord {
	return FormDataRecord{
		WindowID: windowID,
		Values:   make(map[string]FieldValue),
		Metadata: RecordMetadata{Status: RecordStatusDraft},
	}
}

// Set stores a value for the field, rendering the display string when empty.
func (r *FormDataRecord) Set(fieldID string, raw any, display string) {
	if r.Values == nil {
		r.Values = make(map[string]FieldValue)
	}
	if display == "" && raw != nil {
		display = fmt.Sprint(raw)
	}
	r.Values[fieldID] = FieldValue{Raw: raw, Display: display}
}

// RawValues flattens the record into fieldID -> raw value, the shape display
// logic evaluators consume.
func (r FormDataRecord) RawValues() map[string]any {
	out := make(map[string]any, len(r.Values))
	for id, value := range r.Values {
		out[id] = value.Raw
	}
	return out
}

// Clone returns a deep enough copy that callers can mutate Values freely.
func (r FormDataRecord) Clone() FormDataRecord {
	out := r
	out.Values = make(map[string]FieldValue, len(r.Values))
	for id, value := range r.Values {
		if value.Metadata != nil {
			meta := make(map[string]any, len(value.Metadata))
			for k, v := range value.Metadata {
				meta[k] = v
			}
			value.Metadata = meta
		}
		out.Values[id] = value
	}
	return out
}
