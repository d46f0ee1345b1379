package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/schema"
)

// Switch holds the active provider and swaps it for a fallback on demand.
// It implements provider.Provider by delegating every call to whichever
// provider is active when the call starts; in-flight calls are not migrated.
type Switch struct {
	mu       sync.RWMutex
	active   provider.Provider
	fallback provider.Provider
	fellBack bool
	changed  chan struct{}
}

// NewSwitch starts with active and falls back to fallback.
func NewSwitch(active, fallback provider.Provider) (*Switch, error) {
	if active == nil || fallback == nil {
		return nil, errors.New("monitor: active and fallback providers are required")
	}
	return &Switch{
		active:   active,
		fallback: fallback,
		changed:  make(chan struct{}),
	}, nil
}

// Active returns the current provider.
func (s *Switch) Active() provider.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Changed returns a channel closed at the next swap.
func (s *Switch) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Swap replaces the active provider. An explicit swap re-arms the fallback.
func (s *Switch) Swap(p provider.Provider) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = p
	s.fellBack = false
	s.notifyLocked()
}

// FallBack activates the fallback provider. It returns false when the switch
// has already fallen back, so repeated calls swap at most once.
func (s *Switch) FallBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fellBack || s.active == s.fallback {
		return false
	}
	s.active = s.fallback
	s.fellBack = true
	s.notifyLocked()
	return true
}

// FellBack reports whether the fallback is active because of FallBack.
func (s *Switch) FellBack() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fellBack
}

func (s *Switch) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Switch) Kind() provider.Kind {
	return s.Active().Kind()
}

func (s *Switch) GetWindowDefinition(ctx context.Context, windowID string) (schema.WindowDefinition, error) {
	return s.Active().GetWindowDefinition(ctx, windowID)
}

func (s *Switch) GetAvailableWindows(ctx context.Context) ([]schema.WindowSummary, error) {
	return s.Active().GetAvailableWindows(ctx)
}

func (s *Switch) GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error) {
	return s.Active().GetReferenceValues(ctx, referenceID)
}

func (s *Switch) SaveFormData(ctx context.Context, windowID string, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	return s.Active().SaveFormData(ctx, windowID, record)
}

func (s *Switch) GetFormData(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	return s.Active().GetFormData(ctx, windowID, recordID)
}

func (s *Switch) IsConnected(ctx context.Context) (bool, error) {
	return s.Active().IsConnected(ctx)
}

func (s *Switch) CacheSize() int {
	return s.Active().CacheSize()
}

var _ provider.Provider = (*Switch)(nil)
