// Package provider defines the backend contract every form-definition source
// implements, together with the shared TTL cache, error taxonomy and the
// closed set of provider kinds.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/red1oon/ADUI/pkg/schema"
)

// Kind identifies a provider implementation. It is a closed set so identity
// can be compared, logged and stored without inspecting concrete types.
type Kind string

const (
	KindMock     Kind = "mock"
	KindExternal Kind = "external"
	KindJSONFile Kind = "json-file"
	KindAPI      Kind = "api"
)

// Kinds lists every known provider kind.
func Kinds() []Kind {
	return []Kind{KindMock, KindExternal, KindJSONFile, KindAPI}
}

// ParseKind normalises raw and reports an error for unknown kinds.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if kind.Valid() {
		return kind, nil
	}
	return "", fmt.Errorf("provider: unknown kind %q", raw)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMock, KindExternal, KindJSONFile, KindAPI:
		return true
	default:
		return false
	}
}

// Polls reports whether the connection monitor should poll providers of this
// kind. Mock and imported data are always available.
func (k Kind) Polls() bool {
	switch k {
	case KindExternal, KindAPI:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Provider is the uniform contract consumed by the rendering layer.
//
// GetReferenceValues returns an empty list for unknown ids instead of an
// error. GetFormData with an empty recordID returns the latest record saved
// for the window. IsConnected reports live reachability; a provider serving
// from cache while its backend is down returns false.
type Provider interface {
	Kind() Kind
	GetWindowDefinition(ctx context.Context, windowID string) (schema.WindowDefinition, error)
	GetAvailableWindows(ctx context.Context) ([]schema.WindowSummary, error)
	GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error)
	SaveFormData(ctx context.Context, windowID string, record schema.FormDataRecord) (schema.FormDataRecord, error)
	GetFormData(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error)
	IsConnected(ctx context.Context) (bool, error)
	CacheSize() int
}
