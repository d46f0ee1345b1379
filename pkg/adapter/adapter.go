package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/reference"
	"github.com/red1oon/ADUI/pkg/schema"
)

// Result is the outcome of one adaptation: the canonical window plus the
// resolver holding the inline reference values extracted from it.
type Result struct {
	Window     schema.WindowDefinition
	References *reference.Resolver
}

// Adapter converts external window documents into the canonical model. It
// holds configuration only; every call builds its own resolver, so one
// Adapter can serve concurrent callers.
type Adapter struct {
	components       *ComponentTable
	keepDisplayLogic bool
	sanitize         func(string) string
	now              func() time.Time
	logger           *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithComponentTable swaps the component mapping table.
func WithComponentTable(table *ComponentTable) Option {
	return func(a *Adapter) {
		if table != nil {
			a.components = table
		}
	}
}

// WithDisplayLogic keeps display logic expressions on adapted fields as inert
// text. They are never evaluated here; see pkg/displaylogic.
func WithDisplayLogic(keep bool) Option {
	return func(a *Adapter) {
		a.keepDisplayLogic = keep
	}
}

// WithSanitizer overrides the text sanitizer applied to names and help text.
func WithSanitizer(fn func(string) string) Option {
	return func(a *Adapter) {
		if fn != nil {
			a.sanitize = fn
		}
	}
}

// WithClock overrides the time source used for window metadata.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New constructs an Adapter with the built-in component table.
func New(options ...Option) *Adapter {
	a := &Adapter{
		components: NewComponentTable(),
		sanitize:   sanitizeText,
		now:        time.Now,
		logger:     logging.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Components exposes the mapping table so callers can register extra names.
func (a *Adapter) Components() *ComponentTable {
	return a.components
}

// Adapt parses raw JSON and adapts it.
func (a *Adapter) Adapt(ctx context.Context, raw []byte) (Result, error) {
	payload, err := ParseDocument(raw)
	if err != nil {
		return Result{}, err
	}
	return a.AdaptMap(ctx, payload, "")
}

// AdaptDocument adapts a loaded document, tagging the window with its
// location.
func (a *Adapter) AdaptDocument(ctx context.Context, doc schema.Document) (Result, error) {
	payload, err := ParseDocument(doc.Raw())
	if err != nil {
		return Result{}, err
	}
	return a.AdaptMap(ctx, payload, doc.Location())
}

// AdaptMap adapts an already decoded document. source is recorded in the
// window metadata when non-empty.
func (a *Adapter) AdaptMap(ctx context.Context, payload map[string]any, source string) (Result, error) {
	if a == nil {
		return Result{}, errors.New("adapter: adapter is nil")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if payload == nil {
		return Result{}, windowError("document is nil")
	}

	windowID, _ := ResolveWindowID(payload)
	if windowID == "" {
		return Result{}, windowError("window id is missing and cannot be derived from name")
	}
	name := a.sanitize(readString(payload, "name"))
	if name == "" {
		name = windowID
	}

	rawTabs, ok := payload["tabs"].([]any)
	if !ok {
		return Result{}, windowError("tabs array is missing")
	}

	resolver := reference.New()
	window := schema.WindowDefinition{
		ID:          windowID,
		Name:        name,
		Description: a.sanitize(readString(payload, "description")),
		WindowType:  strings.TrimSpace(readString(payload, "windowType")),
		Tabs:        make([]schema.TabDefinition, 0, len(rawTabs)),
		Metadata: schema.WindowMetadata{
			Version:      strings.TrimSpace(readString(payload, "version")),
			LastModified: a.lastModified(payload),
			Source:       source,
		},
	}
	if window.WindowType == "" {
		window.WindowType = "Maintain"
	}

	for tabIdx, rawTab := range rawTabs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tabPayload, ok := rawTab.(map[string]any)
		if !ok {
			return Result{}, tabError(tabIdx, "tab is not an object")
		}
		tab, err := a.adaptTab(tabIdx, tabPayload, resolver)
		if err != nil {
			return Result{}, err
		}
		window.Tabs = append(window.Tabs, tab)
	}

	if err := window.Validate(); err != nil {
		return Result{}, windowError("%v", err)
	}

	a.logger.Debug("window adapted",
		"window_id", window.ID,
		"tabs", len(window.Tabs),
		"embedded_references", resolver.Len(),
	)
	return Result{Window: window, References: resolver}, nil
}

func (a *Adapter) adaptTab(tabIdx int, payload map[string]any, resolver *reference.Resolver) (schema.TabDefinition, error) {
	id := ResolveTabID(payload)
	if id == "" {
		return schema.TabDefinition{}, tabError(tabIdx, "tab id is missing")
	}
	rawFields, ok := payload["fields"].([]any)
	if !ok {
		return schema.TabDefinition{}, tabError(tabIdx, "fields array is missing")
	}

	tab := schema.TabDefinition{
		ID:        id,
		Name:      a.sanitize(readString(payload, "name")),
		Sequence:  sequenceOr(payload, (tabIdx+1)*10),
		ReadOnly:  readBool(payload, "readOnly", false),
		SingleRow: readBool(payload, "singleRow", false),
		Fields:    make([]schema.FieldDefinition, 0, len(rawFields)),
	}
	if level, ok := readInt(payload, "tabLevel"); ok {
		tab.TabLevel = level
	}
	if tab.Name == "" {
		tab.Name = id
	}

	for fieldIdx, rawField := range rawFields {
		fieldPayload, ok := rawField.(map[string]any)
		if !ok {
			return schema.TabDefinition{}, fieldError(tabIdx, fieldIdx, "field is not an object")
		}
		field, err := a.adaptField(tabIdx, fieldIdx, fieldPayload, resolver)
		if err != nil {
			return schema.TabDefinition{}, err
		}
		if tab.ReadOnly {
			field.ReadOnly = true
		}
		tab.Fields = append(tab.Fields, field)
	}
	return tab, nil
}

func (a *Adapter) adaptField(tabIdx, fieldIdx int, payload map[string]any, resolver *reference.Resolver) (schema.FieldDefinition, error) {
	id := resolveFieldID(payload)
	if id == "" {
		return schema.FieldDefinition{}, fieldError(tabIdx, fieldIdx, "field id is missing")
	}

	component := readString(payload, "component")
	displayType, mapped := a.components.Resolve(component)
	if !mapped && component != "" {
		a.logger.Debug("unmapped component, using plain text",
			"field_id", id,
			"component", component,
		)
	}

	field := schema.FieldDefinition{
		ID:          id,
		Name:        a.sanitize(readString(payload, "name")),
		DisplayType: displayType,
		Sequence:    sequenceOr(payload, (fieldIdx+1)*10),
		Mandatory:   readBool(payload, "mandatory", false),
		ReadOnly:    readBool(payload, "readOnly", false),
		Displayed:   readBool(payload, "displayed", true),
		Help:        a.sanitize(readString(payload, "help")),
		Description: a.sanitize(readString(payload, "description")),
	}
	if field.Name == "" {
		field.Name = id
	}
	if length, ok := readInt(payload, "fieldLength"); ok {
		field.FieldLength = length
	}
	if validation, ok := readMap(payload, "validation"); ok {
		field.Mandatory = readBool(validation, "required", field.Mandatory)
		if length, ok := readInt(validation, "maxLength"); ok {
			field.FieldLength = length
		}
	}
	if a.keepDisplayLogic {
		field.DisplayLogic = strings.TrimSpace(readString(payload, "displayLogic"))
	}

	if rawRef, ok := readMap(payload, "reference"); ok {
		ref, err := adaptReference(id, rawRef, resolver)
		if err != nil {
			return schema.FieldDefinition{}, fieldError(tabIdx, fieldIdx, "%v", err)
		}
		field.Reference = ref
	}

	data, _ := readMap(payload, "data")
	ui, _ := readMap(payload, "ui")
	field.Data, field.UI = applyDefaults(displayType, data, ui)
	return field, nil
}

// adaptReference keeps explicit ids verbatim. Inline values without an id are
// stored under the synthetic embedded id and also materialized on the field.
func adaptReference(fieldID string, payload map[string]any, resolver *reference.Resolver) (*schema.ReferenceDefinition, error) {
	values, err := ReferenceValues(payload["values"])
	if err != nil {
		return nil, err
	}
	ref := &schema.ReferenceDefinition{
		ID:             readID(payload, "id"),
		Name:           strings.TrimSpace(readString(payload, "name")),
		ValidationType: strings.TrimSpace(readString(payload, "validationType")),
		Values:         values,
	}
	if ref.ID == "" {
		if values == nil {
			return nil, errors.New("reference has neither id nor values")
		}
		ref.ID = reference.EmbeddedID(fieldID)
		resolver.Put(ref.ID, values)
	}
	if ref.ValidationType == "" {
		ref.ValidationType = "L"
	}
	if ref.Values == nil {
		ref.Values = []schema.ReferenceValue{}
	}
	return ref, nil
}

// ReferenceValues normalizes an inline value list. Entries may be plain
// strings or objects using key/value, id/name or value/label pairs.
func ReferenceValues(raw any) ([]schema.ReferenceValue, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("reference values must be an array")
	}
	out := make([]schema.ReferenceValue, 0, len(list))
	for idx, entry := range list {
		switch typed := entry.(type) {
		case string:
			out = append(out, schema.ReferenceValue{Key: typed, Value: typed, SortOrder: idx})
		case int64, json.Number:
			key := fmt.Sprint(typed)
			out = append(out, schema.ReferenceValue{Key: key, Value: key, SortOrder: idx})
		case map[string]any:
			value := schema.ReferenceValue{
				Key:         firstNonEmpty(readID(typed, "key"), readID(typed, "id"), readID(typed, "value")),
				Value:       firstNonEmpty(readString(typed, "value"), readString(typed, "name"), readString(typed, "label")),
				Description: readString(typed, "description"),
				Color:       readString(typed, "color"),
				Icon:        readString(typed, "icon"),
				SortOrder:   idx,
			}
			if order, ok := readInt(typed, "sortOrder"); ok {
				value.SortOrder = order
			}
			if value.Key == "" {
				return nil, fmt.Errorf("reference value at index %d has no key", idx)
			}
			if value.Value == "" {
				value.Value = value.Key
			}
			out = append(out, value)
		default:
			return nil, fmt.Errorf("reference value at index %d is neither string nor object", idx)
		}
	}
	return out, nil
}

func (a *Adapter) lastModified(payload map[string]any) time.Time {
	if raw := strings.TrimSpace(readString(payload, "lastModified")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed
		}
	}
	return a.now()
}

func sequenceOr(payload map[string]any, fallback int) int {
	if seq, ok := readInt(payload, "sequence"); ok {
		return seq
	}
	if seq, ok := readInt(payload, "seqNo"); ok {
		return seq
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
