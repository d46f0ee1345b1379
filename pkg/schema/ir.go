package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DisplayType is the closed set of canonical field kinds renderers understand.
type DisplayType string

const (
	DisplayTypeString               DisplayType = "String"
	DisplayTypeText                 DisplayType = "Text"
	DisplayTypeInteger              DisplayType = "Integer"
	DisplayTypeYesNo                DisplayType = "YesNo"
	DisplayTypeList                 DisplayType = "List"
	DisplayTypeQRCode               DisplayType = "QRCode"
	DisplayTypeCamera               DisplayType = "Camera"
	DisplayTypeQRChecklist          DisplayType = "QRChecklist"
	DisplayTypeFlippableQRChecklist DisplayType = "FlippableQRChecklist"
	DisplayTypeTaskList             DisplayType = "TaskList"
	DisplayTypeQRCollector          DisplayType = "QRCollector"
	DisplayTypeMultiPhoto           DisplayType = "MultiPhoto"
)

// DisplayTypes lists every canonical display type in declaration order.
func DisplayTypes() []DisplayType {
	return []DisplayType{
		DisplayTypeString,
		DisplayTypeText,
		DisplayTypeInteger,
		DisplayTypeYesNo,
		DisplayTypeList,
		DisplayTypeQRCode,
		DisplayTypeCamera,
		DisplayTypeQRChecklist,
		DisplayTypeFlippableQRChecklist,
		DisplayTypeTaskList,
		DisplayTypeQRCollector,
		DisplayTypeMultiPhoto,
	}
}

// Valid reports whether the display type belongs to the canonical set.
func (d DisplayType) Valid() bool {
	for _, candidate := range DisplayTypes() {
		if candidate == d {
			return true
		}
	}
	return false
}

// WindowMetadata carries provenance for an adapted window.
type WindowMetadata struct {
	Version      string    `json:"version,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Source       string    `json:"source,omitempty"`
}

// WindowDefinition is the canonical form description every provider returns.
type WindowDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	WindowType  string          `json:"windowType,omitempty"`
	Tabs        []TabDefinition `json:"tabs"`
	Metadata    WindowMetadata  `json:"metadata"`
}

// TabDefinition groups fields rendered on the same screen.
type TabDefinition struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Sequence  int               `json:"sequence"`
	TabLevel  int               `json:"tabLevel"`
	ReadOnly  bool              `json:"readOnly"`
	SingleRow bool              `json:"singleRow"`
	Fields    []FieldDefinition `json:"fields"`
}

// FieldDefinition describes a single input. Data and UI are component
// specific payloads carried through from the source document.
type FieldDefinition struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	DisplayType  DisplayType          `json:"displayType"`
	Sequence     int                  `json:"sequence"`
	Mandatory    bool                 `json:"mandatory"`
	ReadOnly     bool                 `json:"readOnly"`
	Displayed    bool                 `json:"displayed"`
	FieldLength  int                  `json:"fieldLength,omitempty"`
	Help         string               `json:"help,omitempty"`
	Description  string               `json:"description,omitempty"`
	DisplayLogic string               `json:"displayLogic,omitempty"`
	Reference    *ReferenceDefinition `json:"reference,omitempty"`
	Data         map[string]any       `json:"data,omitempty"`
	UI           map[string]any       `json:"ui,omitempty"`
}

// ReferenceDefinition is an enumeration attached to a field. The value list
// is always materialized, even when the values were declared inline.
type ReferenceDefinition struct {
	ID             string           `json:"id"`
	Name           string           `json:"name,omitempty"`
	ValidationType string           `json:"validationType,omitempty"`
	Values         []ReferenceValue `json:"values"`
}

// ReferenceValue is one entry of an enumeration.
type ReferenceValue struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	SortOrder   int    `json:"sortOrder,omitempty"`
}

// WindowSummary is the listing entry returned by GetAvailableWindows.
type WindowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WindowType  string `json:"windowType,omitempty"`
}

// Summary projects the window onto its listing entry.
func (w WindowDefinition) Summary() WindowSummary {
	return WindowSummary{ID: w.ID, Name: w.Name, Description: w.Description, WindowType: w.WindowType}
}

// Tab looks up a tab by id.
func (w WindowDefinition) Tab(id string) (TabDefinition, bool) {
	for _, tab := range w.Tabs {
		if tab.ID == id {
			return tab, true
		}
	}
	return TabDefinition{}, false
}

// Field looks up a field by id across all tabs.
func (w WindowDefinition) Field(id string) (FieldDefinition, bool) {
	for _, tab := range w.Tabs {
		for _, field := range tab.Fields {
			if field.ID == id {
				return field, true
			}
		}
	}
	return FieldDefinition{}, false
}

// Validate checks the uniqueness invariants of the canonical model.
func (w WindowDefinition) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("schema: window id is required")
	}
	tabs := make(map[string]struct{}, len(w.Tabs))
	for idx, tab := range w.Tabs {
		if _, dup := tabs[tab.ID]; dup {
			return fmt.Errorf("schema: window %q: duplicate tab id %q at index %d", w.ID, tab.ID, idx)
		}
		tabs[tab.ID] = struct{}{}
		if err := tab.Validate(); err != nil {
			return fmt.Errorf("schema: window %q: %w", w.ID, err)
		}
	}
	return nil
}

// Validate checks that field ids are unique within the tab.
func (t TabDefinition) Validate() error {
	fields := make(map[string]struct{}, len(t.Fields))
	for idx, field := range t.Fields {
		if _, dup := fields[field.ID]; dup {
			return fmt.Errorf("tab %q: duplicate field id %q at index %d", t.ID, field.ID, idx)
		}
		fields[field.ID] = struct{}{}
	}
	return nil
}

// SortedFields returns a copy of the fields ordered by sequence. Fields
// sharing a sequence keep their declaration order.
func (t TabDefinition) SortedFields() []FieldDefinition {
	out := append([]FieldDefinition(nil), t.Fields...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// SortedTabs returns a copy of the tabs ordered by sequence.
func (w WindowDefinition) SortedTabs() []TabDefinition {
	out := append([]TabDefinition(nil), w.Tabs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// References returns every reference definition attached to the window's
// fields, keyed by reference id.
func (w WindowDefinition) References() map[string]ReferenceDefinition {
	out := make(map[string]ReferenceDefinition)
	for _, tab := range w.Tabs {
		for _, field := range tab.Fields {
			if field.Reference == nil || field.Reference.ID == "" {
				continue
			}
			out[field.Reference.ID] = *field.Reference
		}
	}
	return out
}
