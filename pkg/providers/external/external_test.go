package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/schema"
	"github.com/red1oon/ADUI/pkg/testsupport"
)

const windowRoute = "GET /windows/{windowID}"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newProvider(t *testing.T, baseURL string, clock *fakeClock, opts ...Option) *Provider {
	t.Helper()
	p, err := New(baseURL, append([]Option{WithClock(clock.Now), WithTTL(5 * time.Minute)}, opts...)...)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://host", "not a url", "http://"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestWindowCache_TTL(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, server.URL, clock)
	ctx := context.Background()

	first, err := p.WindowEntry(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	clock.Advance(4 * time.Minute)
	second, err := p.WindowEntry(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if first != second || !first.StoredAt.Equal(second.StoredAt) {
		t.Fatalf("expected the cached entry within the ttl")
	}
	if hits := backend.Hits(windowRoute); hits != 1 {
		t.Fatalf("expected one backend hit, got %d", hits)
	}

	clock.Advance(time.Minute)
	third, err := p.WindowEntry(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if third == first {
		t.Fatalf("expected a fresh entry after the ttl")
	}
	if hits := backend.Hits(windowRoute); hits != 2 {
		t.Fatalf("expected a second backend hit, got %d", hits)
	}
	if len(third.Value.Tabs) != 2 || third.Value.Metadata.Version != "2" {
		t.Fatalf("unexpected adapted window: %+v", third.Value)
	}
}

func TestConcurrentFetchesShareResult(t *testing.T) {
	_, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Now()}
	p := newProvider(t, server.URL, clock)

	var wg sync.WaitGroup
	results := make([]schema.WindowDefinition, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.GetWindowDefinition(context.Background(), testsupport.InspectionWindowID)
		}(i)
	}
	wg.Wait()
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("fetch %d: %v", i, errs[i])
		}
		if diff := cmp.Diff(results[0], results[i]); diff != "" {
			t.Fatalf("fetch %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestEmbeddedReferencesRequireAdaptation(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Now()}
	p := newProvider(t, server.URL, clock)
	ctx := context.Background()

	before, err := p.GetReferenceValues(ctx, "tyres_EMBEDDED_REF")
	if err != nil || len(before) != 0 {
		t.Fatalf("embedded lookup before adaptation must be empty, got %v %v", before, err)
	}
	if hits := backend.Hits("GET /references/{referenceID}"); hits != 0 {
		t.Fatalf("embedded ids must never hit the network, got %d hits", hits)
	}

	if _, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	after, err := p.GetReferenceValues(ctx, "tyres_EMBEDDED_REF")
	if err != nil {
		t.Fatalf("embedded lookup: %v", err)
	}
	want := []schema.ReferenceValue{
		{Key: "ok", Value: "OK", SortOrder: 0},
		{Key: "worn", Value: "Worn", SortOrder: 1},
	}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("embedded values mismatch (-want +got):\n%s", diff)
	}
	if hits := backend.Hits("GET /references/{referenceID}"); hits != 0 {
		t.Fatalf("embedded ids must never hit the network, got %d hits", hits)
	}
}

func TestExternalReferences(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Now()}
	p := newProvider(t, server.URL, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		depots, err := p.GetReferenceValues(ctx, "DEPOTS")
		if err != nil {
			t.Fatalf("depots: %v", err)
		}
		if len(depots) != 2 || depots[1].Value != "Manchester" {
			t.Fatalf("unexpected depots: %+v", depots)
		}
	}
	if hits := backend.Hits("GET /references/{referenceID}"); hits != 1 {
		t.Fatalf("expected cached reference list, got %d hits", hits)
	}

	missing, err := p.GetReferenceValues(ctx, "UNKNOWN")
	if err != nil || missing == nil || len(missing) != 0 {
		t.Fatalf("unknown references must yield an empty list, got %#v %v", missing, err)
	}
	if p.CacheSize() != 1 {
		t.Fatalf("expected one cached reference list, got %d", p.CacheSize())
	}
}

func TestWindowsListAndNotFound(t *testing.T) {
	_, server := testsupport.StartBackend(t)
	p := newProvider(t, server.URL, &fakeClock{now: time.Now()})
	ctx := context.Background()

	summaries, err := p.GetAvailableWindows(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []schema.WindowSummary{{ID: "INSPECTION", Name: "Vehicle Inspection", Description: "Daily vehicle walk-around"}}
	if diff := cmp.Diff(want, summaries); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}

	if _, err := p.GetWindowDefinition(ctx, "MISSING"); !errors.Is(err, provider.ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
}

func TestIsConnectedReflectsBackend(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	p := newProvider(t, server.URL, &fakeClock{now: time.Now()})
	ctx := context.Background()

	connected, err := p.IsConnected(ctx)
	if !connected || err != nil {
		t.Fatalf("expected connected, got %v %v", connected, err)
	}

	backend.SetHealthy(false)
	connected, err = p.IsConnected(ctx)
	if connected || !provider.IsNetworkError(err) {
		t.Fatalf("expected network failure, got %v %v", connected, err)
	}
}

func TestServesExpiredEntryWhenBackendUnreachable(t *testing.T) {
	_, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Now()}
	p := newProvider(t, server.URL, clock, WithRequestTimeout(time.Second))
	ctx := context.Background()

	if _, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	server.Close()
	clock.Advance(10 * time.Minute)

	window, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("expected expired entry to be served, got %v", err)
	}
	if window.ID != testsupport.InspectionWindowID {
		t.Fatalf("unexpected window %q", window.ID)
	}
	connected, err := p.IsConnected(ctx)
	if connected || err == nil {
		t.Fatalf("cache presence must not report connected")
	}
	if p.CacheSize() == 0 {
		t.Fatalf("expected non-empty cache")
	}

	if _, err := p.GetWindowDefinition(ctx, "OTHER"); !provider.IsNetworkError(err) {
		t.Fatalf("expected network error for uncached window, got %v", err)
	}
}

func TestSaveFormDataUploadsAndKeepsLocalCopy(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	p := newProvider(t, server.URL, &fakeClock{now: time.Now()})
	ctx := context.Background()

	record := schema.NewRecord("")
	record.Set("plate", "AB12 CDE", "")
	saved, err := p.SaveFormData(ctx, testsupport.InspectionWindowID, record)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	uploaded := backend.Records(testsupport.InspectionWindowID)
	if len(uploaded) != 1 || uploaded[0]["recordId"] != saved.RecordID {
		t.Fatalf("expected uploaded record, got %v", uploaded)
	}

	server.Close()
	offline, err := p.SaveFormData(ctx, testsupport.InspectionWindowID, record)
	if err != nil {
		t.Fatalf("save while offline must keep the local copy: %v", err)
	}
	latest, err := p.GetFormData(ctx, testsupport.InspectionWindowID, "")
	if err != nil || latest.RecordID != offline.RecordID {
		t.Fatalf("expected the offline record as latest, got %+v %v", latest, err)
	}
}

func TestClearCache(t *testing.T) {
	_, server := testsupport.StartBackend(t)
	p := newProvider(t, server.URL, &fakeClock{now: time.Now()})
	ctx := context.Background()
	if _, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	p.ClearCache()
	if p.CacheSize() != 0 {
		t.Fatalf("expected empty cache")
	}
	values, _ := p.GetReferenceValues(ctx, "tyres_EMBEDDED_REF")
	if len(values) != 0 {
		t.Fatalf("embedded references must be cleared with the cache")
	}
}

func TestGetWindowDefinition_ReturnsIndependentCopies(t *testing.T) {
	backend, server := testsupport.StartBackend(t)
	clock := &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, server.URL, clock)
	ctx := context.Background()

	first, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	name := first.Tabs[0].Fields[0].Name
	first.Tabs[0].Fields[0].Name = "edited"
	first.Tabs[0].Fields[2].Reference.Values[0].Value = "edited"
	first.Tabs[1].Fields[0].Data["maxPhotos"] = 99

	second, err := p.GetWindowDefinition(ctx, testsupport.InspectionWindowID)
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if second.Tabs[0].Fields[0].Name != name {
		t.Fatalf("caller edits leaked into the cache: %q", second.Tabs[0].Fields[0].Name)
	}
	if second.Tabs[0].Fields[2].Reference.Values[0].Value != "OK" {
		t.Fatalf("reference values leaked into the cache: %+v", second.Tabs[0].Fields[2].Reference.Values)
	}
	if second.Tabs[1].Fields[0].Data["maxPhotos"] == 99 {
		t.Fatalf("data payload leaked into the cache")
	}
	if backend.Hits(windowRoute) != 1 {
		t.Fatalf("second read should be served from cache")
	}
}

func TestWindowFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	doc := testsupport.MustReadFixture(t, "inspection.json")
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	defer server.Close()
	releaseAll := sync.OnceFunc(func() { close(release) })
	defer releaseAll()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, server.URL, clock, WithRequestTimeout(5*time.Second))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.GetWindowDefinition(firstCtx, testsupport.InspectionWindowID)
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		window schema.WindowDefinition
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		window, err := p.GetWindowDefinition(context.Background(), testsupport.InspectionWindowID)
		second <- outcome{window, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see context.Canceled, got %v", err)
	}
	releaseAll()

	select {
	case got := <-second:
		if got.err != nil {
			t.Fatalf("waiting caller failed with the cancelled caller's error: %v", got.err)
		}
		if got.window.ID != testsupport.InspectionWindowID {
			t.Fatalf("unexpected window %q", got.window.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiting caller never returned")
	}
}
