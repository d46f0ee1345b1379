package adapter

import (
	"sort"
	"strings"
	"sync"

	"github.com/red1oon/ADUI/pkg/schema"
)

// ComponentTable maps external component names onto canonical display types.
// Names are matched case-insensitively with '_' and ' ' folded into '-'.
// Unknown names resolve to the fallback (plain String by default).
type ComponentTable struct {
	mu       sync.RWMutex
	entries  map[string]schema.DisplayType
	fallback schema.DisplayType
}

// NewComponentTable constructs a table pre-populated with the built-in
// component names.
func NewComponentTable() *ComponentTable {
	table := &ComponentTable{
		entries:  make(map[string]schema.DisplayType),
		fallback: schema.DisplayTypeString,
	}
	table.registerBuiltins()
	return table
}

// Register maps name to the display type, replacing any previous mapping.
// Blank names and non-canonical display types are ignored.
func (t *ComponentTable) Register(name string, displayType schema.DisplayType) {
	if t == nil || !displayType.Valid() {
		return
	}
	key := normalizeComponentName(name)
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = displayType
}

// Resolve returns the display type for name and whether it was mapped
// explicitly.
func (t *ComponentTable) Resolve(name string) (schema.DisplayType, bool) {
	if t == nil {
		return schema.DisplayTypeString, false
	}
	key := normalizeComponentName(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if displayType, ok := t.entries[key]; ok {
		return displayType, true
	}
	return t.fallback, false
}

// Names returns the registered component names sorted alphabetically.
func (t *ComponentTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeComponentName(name string) string {
	value := strings.ToLower(strings.TrimSpace(name))
	value = strings.NewReplacer("_", "-", " ", "-").Replace(value)
	return value
}

func (t *ComponentTable) registerBuiltins() {
	// Canonical names map onto themselves so documents already written in
	// the canonical vocabulary adapt unchanged.
	for _, displayType := range schema.DisplayTypes() {
		t.Register(string(displayType), displayType)
	}

	builtins := map[schema.DisplayType][]string{
		schema.DisplayTypeString:               {"text", "input", "textfield", "text-input", "email", "phone"},
		schema.DisplayTypeText:                 {"textarea", "text-area", "multiline", "memo", "notes"},
		schema.DisplayTypeInteger:              {"number", "numeric", "int", "number-input"},
		schema.DisplayTypeYesNo:                {"checkbox", "boolean", "switch", "toggle", "yes-no"},
		schema.DisplayTypeList:                 {"select", "dropdown", "radio", "picker", "combo"},
		schema.DisplayTypeQRCode:               {"qr", "qr-code", "qr-scanner", "barcode", "scanner"},
		schema.DisplayTypeCamera:               {"photo", "image", "camera-input", "picture"},
		schema.DisplayTypeQRChecklist:          {"qr-checklist", "checklist"},
		schema.DisplayTypeFlippableQRChecklist: {"flippable-qr-checklist", "flip-checklist"},
		schema.DisplayTypeTaskList:             {"task-list", "tasks", "task-graph"},
		schema.DisplayTypeQRCollector:          {"qr-collector", "collector"},
		schema.DisplayTypeMultiPhoto:           {"multi-photo", "photos", "gallery"},
	}
	for displayType, names := range builtins {
		for _, name := range names {
			t.Register(name, displayType)
		}
	}
}
