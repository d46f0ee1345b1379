// Package reference holds enumeration values declared inline in a window
// document. A Resolver is scoped to a single adaptation: the adapter creates
// one per call and hands it back with the adapted window, so embedded values
// from one document can never leak into another.
package reference

import (
	"strings"
	"sync"

	"github.com/red1oon/ADUI/pkg/schema"
)

// EmbeddedSuffix marks reference ids synthesized for inline value lists.
const EmbeddedSuffix = "_EMBEDDED_REF"

// EmbeddedID derives the synthetic reference id for a field whose reference
// carries inline values but no id. Adapter and importer both use it.
func EmbeddedID(fieldID string) string {
	return strings.TrimSpace(fieldID) + EmbeddedSuffix
}

// IsEmbedded reports whether the id was produced by EmbeddedID. It only
// inspects the string.
func IsEmbedded(id string) bool {
	return len(id) > len(EmbeddedSuffix) && strings.HasSuffix(id, EmbeddedSuffix)
}

// Resolver stores embedded reference values by synthetic id.
type Resolver struct {
	mu     sync.RWMutex
	values map[string][]schema.ReferenceValue
}

// New constructs an empty resolver.
func New() *Resolver {
	return &Resolver{values: make(map[string][]schema.ReferenceValue)}
}

// Clear drops every stored entry.
func (r *Resolver) Clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = make(map[string][]schema.ReferenceValue)
}

// Put stores a copy of values under id.
func (r *Resolver) Put(id string, values []schema.ReferenceValue) {
	if r == nil || id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[string][]schema.ReferenceValue)
	}
	r.values[id] = append([]schema.ReferenceValue(nil), values...)
}

// Get returns a copy of the values stored under id.
func (r *Resolver) Get(id string) ([]schema.ReferenceValue, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	values, ok := r.values[id]
	if !ok {
		return nil, false
	}
	return append([]schema.ReferenceValue(nil), values...), true
}

// IDs returns the stored ids; order is unspecified.
func (r *Resolver) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.values))
	for id := range r.values {
		ids = append(ids, id)
	}
	return ids
}

// Len reports how many references are stored.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// IsEmbedded is the method form of the package level predicate so callers
// holding a resolver need not import the package function separately.
func (r *Resolver) IsEmbedded(id string) bool {
	return IsEmbedded(id)
}
