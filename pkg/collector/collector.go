// Package collector fills a window definition from the terminal, one prompt
// per visible field, and returns the answers as a draft FormDataRecord.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/red1oon/ADUI/pkg/displaylogic"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/schema"
)

// ReferenceSource supplies list values for fields whose reference carries no
// inline values. Every provider.Provider satisfies it.
type ReferenceSource interface {
	GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error)
}

// Collector walks tabs and fields in sequence order.
type Collector struct {
	driver    PromptDriver
	refs      ReferenceSource
	evaluator displaylogic.Evaluator
	logger    *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithPromptDriver swaps the terminal driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(c *Collector) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// WithReferences sets where List fields fetch their values.
func WithReferences(refs ReferenceSource) Option {
	return func(c *Collector) {
		c.refs = refs
	}
}

// WithEvaluator enables display logic. Without one every displayed field is
// prompted.
func WithEvaluator(evaluator displaylogic.Evaluator) Option {
	return func(c *Collector) {
		c.evaluator = evaluator
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Collector using the survey driver by default.
func New(options ...Option) *Collector {
	c := &Collector{
		driver: NewSurveyDriver(),
		logger: logging.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Collect prompts for a fresh record.
func (c *Collector) Collect(ctx context.Context, window schema.WindowDefinition) (schema.FormDataRecord, error) {
	return c.Edit(ctx, window, schema.NewRecord(window.ID))
}

// Edit prompts for every visible, writable field using the record's current
// values as defaults. The input record is not modified.
func (c *Collector) Edit(ctx context.Context, window schema.WindowDefinition, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	if ctx == nil {
		return schema.FormDataRecord{}, errors.New("collector: context is required")
	}
	if c.driver == nil {
		return schema.FormDataRecord{}, ErrNoDriver
	}
	out := record.Clone()
	out.WindowID = window.ID
	if out.Values == nil {
		out.Values = make(map[string]schema.FieldValue)
	}

	for _, tab := range window.SortedTabs() {
		if tab.Name != "" {
			if err := c.driver.Info(ctx, "== "+tab.Name+" =="); err != nil {
				return schema.FormDataRecord{}, err
			}
		}
		for _, field := range tab.SortedFields() {
			if err := ctx.Err(); err != nil {
				return schema.FormDataRecord{}, err
			}
			if field.ReadOnly {
				continue
			}
			visCtx := displaylogic.ContextFromRecord(out)
			if !displaylogic.VisibleWith(field, visCtx, c.evaluator, c.logger) {
				delete(out.Values, field.ID)
				continue
			}
			value, set, err := c.promptField(ctx, field, out.Values[field.ID])
			if err != nil {
				return schema.FormDataRecord{}, fmt.Errorf("collector: field %s: %w", field.ID, err)
			}
			if set {
				out.Values[field.ID] = value
			} else {
				delete(out.Values, field.ID)
			}
		}
	}
	c.logger.Debug("record collected", "window_id", window.ID, "values", len(out.Values))
	return out, nil
}

func (c *Collector) promptField(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	switch field.DisplayType {
	case schema.DisplayTypeText:
		return c.promptText(ctx, field, current)
	case schema.DisplayTypeInteger:
		return c.promptInteger(ctx, field, current)
	case schema.DisplayTypeYesNo:
		return c.promptYesNo(ctx, field, current)
	case schema.DisplayTypeList:
		return c.promptList(ctx, field, current)
	case schema.DisplayTypeQRChecklist, schema.DisplayTypeFlippableQRChecklist, schema.DisplayTypeTaskList:
		return c.promptChecklist(ctx, field, current)
	case schema.DisplayTypeMultiPhoto, schema.DisplayTypeQRCollector:
		return c.promptMany(ctx, field, current)
	default:
		// String, QRCode, Camera and anything unmapped.
		return c.promptString(ctx, field, current)
	}
}

func (c *Collector) promptString(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	check := textValidator(field, true)
	for {
		response, err := c.driver.Input(ctx, InputConfig{
			Message:   label(field),
			Default:   current.Display,
			Help:      field.Help,
			Validator: check,
		})
		if err != nil {
			return schema.FieldValue{}, false, err
		}
		response = strings.TrimSpace(response)
		if err := check(response); err != nil {
			c.invalid(ctx, field, err)
			continue
		}
		if response == "" {
			return schema.FieldValue{}, false, nil
		}
		return schema.FieldValue{Raw: response, Display: response}, true, nil
	}
}

func (c *Collector) promptText(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	check := textValidator(field, false)
	for {
		response, err := c.driver.TextArea(ctx, TextAreaConfig{
			Message:   label(field),
			Default:   current.Display,
			Help:      field.Help,
			Validator: check,
		})
		if err != nil {
			return schema.FieldValue{}, false, err
		}
		if err := check(response); err != nil {
			c.invalid(ctx, field, err)
			continue
		}
		if strings.TrimSpace(response) == "" {
			return schema.FieldValue{}, false, nil
		}
		return schema.FieldValue{Raw: response, Display: response}, true, nil
	}
}

func (c *Collector) promptInteger(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	check := integerValidator(field)
	for {
		response, err := c.driver.Input(ctx, InputConfig{
			Message:   label(field),
			Default:   current.Display,
			Help:      field.Help,
			Validator: check,
		})
		if err != nil {
			return schema.FieldValue{}, false, err
		}
		response = strings.TrimSpace(response)
		if err := check(response); err != nil {
			c.invalid(ctx, field, err)
			continue
		}
		if response == "" {
			return schema.FieldValue{}, false, nil
		}
		parsed, _ := strconv.ParseInt(response, 10, 64)
		return schema.FieldValue{Raw: parsed, Display: strconv.FormatInt(parsed, 10)}, true, nil
	}
}

func (c *Collector) promptYesNo(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	def, _ := current.Raw.(bool)
	answer, err := c.driver.Confirm(ctx, ConfirmConfig{
		Message: label(field),
		Default: def,
		Help:    field.Help,
	})
	if err != nil {
		return schema.FieldValue{}, false, err
	}
	display := "No"
	if answer {
		display = "Yes"
	}
	return schema.FieldValue{Raw: answer, Display: display}, true, nil
}

const noneOption = "(none)"

func (c *Collector) promptList(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	values, err := c.referenceValues(ctx, field)
	if err != nil {
		return schema.FieldValue{}, false, err
	}
	if len(values) == 0 {
		c.logger.Debug("list has no values, falling back to text", "field_id", field.ID)
		return c.promptString(ctx, field, current)
	}

	options := make([]string, 0, len(values)+1)
	offset := 0
	if !field.Mandatory {
		options = append(options, noneOption)
		offset = 1
	}
	defaultIdx := 0
	for i, value := range values {
		options = append(options, value.Value)
		if current.Raw != nil && fmt.Sprint(current.Raw) == value.Key {
			defaultIdx = i + offset
		}
	}

	idx, err := c.driver.Select(ctx, SelectConfig{
		Message:      label(field),
		Options:      options,
		DefaultIndex: defaultIdx,
		Help:         field.Help,
	})
	if err != nil {
		return schema.FieldValue{}, false, err
	}
	idx -= offset
	if idx < 0 || idx >= len(values) {
		return schema.FieldValue{}, false, nil
	}
	chosen := values[idx]
	return schema.FieldValue{Raw: chosen.Key, Display: chosen.Value}, true, nil
}

func (c *Collector) referenceValues(ctx context.Context, field schema.FieldDefinition) ([]schema.ReferenceValue, error) {
	if field.Reference == nil {
		return nil, nil
	}
	values := field.Reference.Values
	if len(values) == 0 && c.refs != nil && field.Reference.ID != "" {
		fetched, err := c.refs.GetReferenceValues(ctx, field.Reference.ID)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", field.Reference.ID, err)
		}
		values = fetched
	}
	out := append([]schema.ReferenceValue(nil), values...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (c *Collector) promptChecklist(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	items := checklistItems(field)
	if len(items) == 0 {
		return c.promptMany(ctx, field, current)
	}
	options := make([]string, len(items))
	for i, item := range items {
		options[i] = item.label
	}

	selected := make(map[string]struct{})
	for _, key := range stringList(current.Raw) {
		selected[key] = struct{}{}
	}
	var defaults []int
	for i, item := range items {
		if _, ok := selected[item.key]; ok {
			defaults = append(defaults, i)
		}
	}

	for {
		indices, err := c.driver.MultiSelect(ctx, SelectConfig{
			Message:  label(field),
			Options:  options,
			Defaults: defaults,
			Help:     field.Help,
		})
		if err != nil {
			return schema.FieldValue{}, false, err
		}
		if len(indices) == 0 && field.Mandatory {
			c.invalid(ctx, field, errRequired)
			continue
		}
		keys := make([]string, 0, len(indices))
		labels := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx < 0 || idx >= len(items) {
				continue
			}
			keys = append(keys, items[idx].key)
			labels = append(labels, items[idx].label)
		}
		return schema.FieldValue{
			Raw:      keys,
			Display:  fmt.Sprintf("%d/%d", len(keys), len(items)),
			Metadata: map[string]any{"completed": labels, "total": len(items)},
		}, true, nil
	}
}

// promptMany reads a comma separated list of codes or file paths.
func (c *Collector) promptMany(ctx context.Context, field schema.FieldDefinition, current schema.FieldValue) (schema.FieldValue, bool, error) {
	check := entriesValidator(field)
	for {
		response, err := c.driver.Input(ctx, InputConfig{
			Message:   label(field),
			Default:   strings.Join(stringList(current.Raw), ", "),
			Help:      "Separate entries with commas",
			Validator: check,
		})
		if err != nil {
			return schema.FieldValue{}, false, err
		}
		if err := check(response); err != nil {
			c.invalid(ctx, field, err)
			continue
		}
		entries := splitEntries(response)
		if len(entries) == 0 {
			return schema.FieldValue{}, false, nil
		}
		return schema.FieldValue{
			Raw:      entries,
			Display:  fmt.Sprintf("%d item(s)", len(entries)),
			Metadata: map[string]any{"count": len(entries)},
		}, true, nil
	}
}

var (
	errRequired       = errors.New("required")
	errNotWholeNumber = errors.New("not a whole number")
)

func (c *Collector) invalid(ctx context.Context, field schema.FieldDefinition, err error) {
	_ = c.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", label(field), err))
}

// textValidator accepts a blank answer for optional fields. trim applies to
// single line input.
func textValidator(field schema.FieldDefinition, trim bool) func(string) error {
	return func(value string) error {
		if trim {
			value = strings.TrimSpace(value)
		}
		if strings.TrimSpace(value) == "" && !field.Mandatory {
			return nil
		}
		return validateText(field, value)
	}
}

func integerValidator(field schema.FieldDefinition) func(string) error {
	return func(value string) error {
		value = strings.TrimSpace(value)
		if value == "" {
			if field.Mandatory {
				return errRequired
			}
			return nil
		}
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return errNotWholeNumber
		}
		return nil
	}
}

func entriesValidator(field schema.FieldDefinition) func(string) error {
	minItems, maxItems := bounds(field)
	allowDuplicates, _ := field.UI["allowDuplicates"].(bool)
	return func(value string) error {
		entries := splitEntries(value)
		if len(entries) == 0 && !field.Mandatory && minItems == 0 {
			return nil
		}
		return checkEntries(entries, field.Mandatory, minItems, maxItems, allowDuplicates)
	}
}

func validateText(field schema.FieldDefinition, value string) error {
	if field.Mandatory && strings.TrimSpace(value) == "" {
		return errRequired
	}
	if field.FieldLength > 0 && utf8.RuneCountInString(value) > field.FieldLength {
		return fmt.Errorf("longer than %d characters", field.FieldLength)
	}
	return nil
}

func checkEntries(entries []string, mandatory bool, minItems, maxItems int, allowDuplicates bool) error {
	if mandatory && len(entries) == 0 {
		return errRequired
	}
	if len(entries) < minItems {
		return fmt.Errorf("at least %d required", minItems)
	}
	if maxItems > 0 && len(entries) > maxItems {
		return fmt.Errorf("at most %d allowed", maxItems)
	}
	if !allowDuplicates {
		seen := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			if _, dup := seen[entry]; dup {
				return fmt.Errorf("duplicate entry %q", entry)
			}
			seen[entry] = struct{}{}
		}
	}
	return nil
}

func bounds(field schema.FieldDefinition) (int, int) {
	switch field.DisplayType {
	case schema.DisplayTypeMultiPhoto:
		return intFrom(field.Data["minPhotos"]), intFrom(field.Data["maxPhotos"])
	case schema.DisplayTypeQRCollector:
		return 0, intFrom(field.Data["maxItems"])
	default:
		return 0, 0
	}
}

type checklistItem struct {
	key   string
	label string
}

// checklistItems reads data.items (checklists) or data.tasks (task lists),
// falling back to reference values. Entries may be strings or objects with
// id/key and label/name/title.
func checklistItems(field schema.FieldDefinition) []checklistItem {
	key := "items"
	if field.DisplayType == schema.DisplayTypeTaskList {
		key = "tasks"
	}
	var out []checklistItem
	if raw, ok := field.Data[key].([]any); ok {
		for _, entry := range raw {
			switch typed := entry.(type) {
			case string:
				out = append(out, checklistItem{key: typed, label: typed})
			case map[string]any:
				k := firstString(typed, "id", "key", "code")
				l := firstString(typed, "label", "name", "title")
				if k == "" {
					k = l
				}
				if l == "" {
					l = k
				}
				if k != "" {
					out = append(out, checklistItem{key: k, label: l})
				}
			}
		}
	}
	if len(out) == 0 && field.Reference != nil {
		for _, value := range field.Reference.Values {
			out = append(out, checklistItem{key: value.Key, label: value.Value})
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func splitEntries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func stringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return splitEntries(v)
	default:
		return nil
	}
}

func intFrom(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func label(field schema.FieldDefinition) string {
	name := field.Name
	if name == "" {
		name = field.ID
	}
	if field.Mandatory {
		return name + " *"
	}
	return name
}
