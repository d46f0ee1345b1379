package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/schema"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestCache_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache[schema.WindowDefinition](5*time.Minute, clock.Now)

	stored := cache.Put("SITE_AUDIT", schema.WindowDefinition{ID: "SITE_AUDIT"})

	clock.now = clock.now.Add(4 * time.Minute)
	first, ok := cache.Get("SITE_AUDIT")
	if !ok {
		t.Fatalf("expected fresh entry")
	}
	second, _ := cache.Get("SITE_AUDIT")
	if first != stored || second != stored {
		t.Fatalf("expected the same entry pointer within the ttl")
	}

	clock.now = clock.now.Add(time.Minute)
	if _, ok := cache.Get("SITE_AUDIT"); ok {
		t.Fatalf("entry must be invalid once now-storedAt reaches the ttl")
	}
	if stale, ok := cache.Stale("SITE_AUDIT"); !ok || stale != stored {
		t.Fatalf("expected stale entry to remain available")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected stale entry to count towards Len")
	}
	if removed := cache.Prune(); removed != 1 || cache.Len() != 0 {
		t.Fatalf("prune removed %d, len %d", removed, cache.Len())
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache := NewCache[int](0, clock.Now)
	cache.Put("k", 1)
	clock.now = clock.now.Add(24 * 365 * time.Hour)
	if entry, ok := cache.Get("k"); !ok || entry.Value != 1 {
		t.Fatalf("zero ttl entries must not expire")
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("clear left entries behind")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		raw   string
		kind  Kind
		polls bool
	}{
		{raw: "mock", kind: KindMock},
		{raw: " External ", kind: KindExternal, polls: true},
		{raw: "json-file", kind: KindJSONFile},
		{raw: "API", kind: KindAPI, polls: true},
	}
	for _, tc := range cases {
		kind, err := ParseKind(tc.raw)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", tc.raw, err)
		}
		if kind != tc.kind || kind.Polls() != tc.polls {
			t.Fatalf("ParseKind(%q) = %q polls=%v", tc.raw, kind, kind.Polls())
		}
	}
	if _, err := ParseKind("graphql"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

type stubProvider struct {
	kind Kind
}

func (s stubProvider) Kind() Kind { return s.kind }
func (stubProvider) GetWindowDefinition(context.Context, string) (schema.WindowDefinition, error) {
	return schema.WindowDefinition{}, nil
}
func (stubProvider) GetAvailableWindows(context.Context) ([]schema.WindowSummary, error) {
	return nil, nil
}
func (stubProvider) GetReferenceValues(context.Context, string) ([]schema.ReferenceValue, error) {
	return nil, nil
}
func (stubProvider) SaveFormData(_ context.Context, _ string, r schema.FormDataRecord) (schema.FormDataRecord, error) {
	return r, nil
}
func (stubProvider) GetFormData(context.Context, string, string) (schema.FormDataRecord, error) {
	return schema.FormDataRecord{}, nil
}
func (stubProvider) IsConnected(context.Context) (bool, error) { return true, nil }
func (stubProvider) CacheSize() int                           { return 0 }

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(stubProvider{kind: KindMock})
	registry.MustRegister(stubProvider{kind: KindExternal})

	if err := registry.Register(stubProvider{kind: KindMock}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(stubProvider{kind: "ftp"}); err == nil {
		t.Fatalf("expected invalid kind error")
	}
	if _, err := registry.Get(KindAPI); err == nil {
		t.Fatalf("expected lookup error for unregistered kind")
	}
	got, err := registry.Get(KindMock)
	if err != nil || got.Kind() != KindMock {
		t.Fatalf("unexpected lookup result %v %v", got, err)
	}
	kinds := registry.List()
	if len(kinds) != 2 || kinds[0] != KindExternal || kinds[1] != KindMock {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestFetchRecord(t *testing.T) {
	ctx := context.Background()
	store := formstore.NewMemory(nil)
	saved, err := store.Save(ctx, schema.NewRecord("W"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := FetchRecord(ctx, store, "test provider", "W", "")
	if err != nil || latest.RecordID != saved.RecordID {
		t.Fatalf("latest lookup failed: %+v %v", latest, err)
	}
	byID, err := FetchRecord(ctx, store, "test provider", "W", saved.RecordID)
	if err != nil || byID.RecordID != saved.RecordID {
		t.Fatalf("id lookup failed: %+v %v", byID, err)
	}
	_, err = FetchRecord(ctx, store, "test provider", "OTHER", "")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	err := fmt.Errorf("external provider: window %q: %w", "W", &NetworkError{Op: "GET", URL: "http://x/windows/W", StatusCode: 503})
	if !IsNetworkError(err) {
		t.Fatalf("expected wrapped network error to be detected")
	}
	if IsNetworkError(errors.New("boom")) {
		t.Fatalf("plain errors are not network errors")
	}
}
