// Package external fetches window documents over HTTP, adapts them and keeps
// the results in a TTL cache. Inline reference values are answered from the
// resolvers of adapted windows and never requested from the network.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/reference"
	"github.com/red1oon/ADUI/pkg/schema"
)

// DefaultRequestTimeout bounds requests when no timeout is configured.
const DefaultRequestTimeout = 10 * time.Second

const windowListKey = "windows"

// errNotFound marks a 404 from the backend.
var errNotFound = errors.New("not found")

// Provider is the HTTP-backed implementation.
type Provider struct {
	kind      provider.Kind
	baseURL   string
	prefix    string
	client    *http.Client
	timeout   time.Duration
	ttl       time.Duration
	now       func() time.Time
	normalize func(any) any
	adapter   *adapter.Adapter
	store     formstore.Store
	logger    *slog.Logger

	windows    *provider.Cache[schema.WindowDefinition]
	summaries  *provider.Cache[[]schema.WindowSummary]
	references *provider.Cache[[]schema.ReferenceValue]
	group      singleflight.Group

	// resolvers holds the embedded references of each adapted window;
	// embedded maps an embedded reference id to the window that owns it.
	mu        sync.RWMutex
	resolvers map[string]*reference.Resolver
	embedded  map[string]string
}

// New builds a provider for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("external provider: base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("external provider: invalid base url %q", baseURL)
	}

	p := &Provider{
		kind:      provider.KindExternal,
		baseURL:   base,
		client:    http.DefaultClient,
		timeout:   DefaultRequestTimeout,
		ttl:       provider.DefaultTTL,
		now:       time.Now,
		normalize: func(v any) any { return v },
		logger:    logging.Nop(),
		resolvers: make(map[string]*reference.Resolver),
		embedded:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.adapter == nil {
		p.adapter = adapter.New(adapter.WithLogger(p.logger))
	}
	if p.store == nil {
		p.store = formstore.NewMemory(p.now)
	}
	p.windows = provider.NewCache[schema.WindowDefinition](p.ttl, p.now)
	p.summaries = provider.NewCache[[]schema.WindowSummary](p.ttl, p.now)
	p.references = provider.NewCache[[]schema.ReferenceValue](p.ttl, p.now)
	return p, nil
}

func (p *Provider) Kind() provider.Kind {
	return p.kind
}

func (p *Provider) label() string {
	return string(p.kind) + " provider"
}

// BaseURL returns the backend root.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// GetWindowDefinition returns the adapted window, fetching it when the cache
// entry is missing or expired.
func (p *Provider) GetWindowDefinition(ctx context.Context, windowID string) (schema.WindowDefinition, error) {
	entry, err := p.WindowEntry(ctx, windowID)
	if err != nil {
		return schema.WindowDefinition{}, err
	}
	return entry.Value.Clone(), nil
}

// WindowEntry exposes the cache entry behind GetWindowDefinition. Calls
// within the TTL return the same entry. When the backend is unreachable an
// expired entry is served instead of failing.
func (p *Provider) WindowEntry(ctx context.Context, windowID string) (*provider.CacheEntry[schema.WindowDefinition], error) {
	id := strings.TrimSpace(windowID)
	if id == "" {
		return nil, fmt.Errorf("%s: window id is required", p.label())
	}
	if entry, ok := p.windows.Get(id); ok {
		return entry, nil
	}

	v, err := p.shared(ctx, "window:"+id, func(ctx context.Context) (any, error) {
		return p.fetchWindow(ctx, id)
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%s: window %q: %w", p.label(), id, provider.ErrWindowNotFound)
		}
		if stale, ok := p.windows.Stale(id); ok && provider.IsNetworkError(err) {
			p.logger.Warn("serving expired window", "window_id", id, "error", err)
			return stale, nil
		}
		return nil, fmt.Errorf("%s: window %q: %w", p.label(), id, err)
	}
	return v.(*provider.CacheEntry[schema.WindowDefinition]), nil
}

func (p *Provider) fetchWindow(ctx context.Context, id string) (*provider.CacheEntry[schema.WindowDefinition], error) {
	raw, location, err := p.get(ctx, "/windows/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	payload, err := adapter.ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	normalized, ok := p.normalize(payload).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("window document is not an object")
	}
	result, err := p.adapter.AdaptMap(ctx, normalized, location)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if previous, ok := p.resolvers[id]; ok {
		for _, refID := range previous.IDs() {
			if p.embedded[refID] == id {
				delete(p.embedded, refID)
			}
		}
	}
	p.resolvers[id] = result.References
	for _, refID := range result.References.IDs() {
		p.embedded[refID] = id
	}
	p.mu.Unlock()

	p.logger.Debug("window fetched",
		"provider", p.kind,
		"window_id", id,
		"embedded_references", result.References.Len(),
	)
	return p.windows.Put(id, result.Window), nil
}

func (p *Provider) GetAvailableWindows(ctx context.Context) ([]schema.WindowSummary, error) {
	if entry, ok := p.summaries.Get(windowListKey); ok {
		return cloneSummaries(entry.Value), nil
	}
	v, err := p.shared(ctx, windowListKey, func(ctx context.Context) (any, error) {
		var body struct {
			Windows []schema.WindowSummary `json:"windows"`
		}
		if _, err := p.getJSON(ctx, "/windows", &body); err != nil {
			return nil, err
		}
		sort.Slice(body.Windows, func(i, j int) bool { return body.Windows[i].ID < body.Windows[j].ID })
		return p.summaries.Put(windowListKey, body.Windows), nil
	})
	if err != nil {
		if stale, ok := p.summaries.Stale(windowListKey); ok && provider.IsNetworkError(err) {
			p.logger.Warn("serving expired window list", "error", err)
			return cloneSummaries(stale.Value), nil
		}
		return nil, fmt.Errorf("%s: list windows: %w", p.label(), err)
	}
	return cloneSummaries(v.(*provider.CacheEntry[[]schema.WindowSummary]).Value), nil
}

// GetReferenceValues answers embedded ids from the owning window's resolver
// and fetches everything else. Unknown ids yield an empty list.
func (p *Provider) GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error) {
	id := strings.TrimSpace(referenceID)
	if reference.IsEmbedded(id) {
		values, err := p.embeddedValues(id)
		if err != nil {
			p.logger.Debug("embedded reference unavailable", "reference_id", id, "error", err)
			return []schema.ReferenceValue{}, nil
		}
		return values, nil
	}

	if entry, ok := p.references.Get(id); ok {
		return cloneValues(entry.Value), nil
	}
	v, err := p.shared(ctx, "reference:"+id, func(ctx context.Context) (any, error) {
		var body struct {
			Values []schema.ReferenceValue `json:"values"`
		}
		if _, err := p.getJSON(ctx, "/references/"+url.PathEscape(id), &body); err != nil {
			return nil, err
		}
		if body.Values == nil {
			body.Values = []schema.ReferenceValue{}
		}
		return p.references.Put(id, body.Values), nil
	})
	switch {
	case err == nil:
		return cloneValues(v.(*provider.CacheEntry[[]schema.ReferenceValue]).Value), nil
	case errors.Is(err, errNotFound):
		p.logger.Debug("reference not found", "reference_id", id)
		return []schema.ReferenceValue{}, nil
	}
	if stale, ok := p.references.Stale(id); ok && provider.IsNetworkError(err) {
		p.logger.Warn("serving expired reference", "reference_id", id, "error", err)
		return cloneValues(stale.Value), nil
	}
	return nil, fmt.Errorf("%s: reference %q: %w", p.label(), id, err)
}

func (p *Provider) embeddedValues(id string) ([]schema.ReferenceValue, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	windowID, ok := p.embedded[id]
	if !ok {
		return nil, provider.ErrReferenceNotFound
	}
	values, ok := p.resolvers[windowID].Get(id)
	if !ok {
		return nil, provider.ErrReferenceNotFound
	}
	return values, nil
}

// SaveFormData stores the record locally, then uploads it. A failed upload
// is logged and the local copy kept.
func (p *Provider) SaveFormData(ctx context.Context, windowID string, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	record.WindowID = windowID
	saved, err := p.store.Save(ctx, record)
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("%s: save window %q: %w", p.label(), windowID, err)
	}
	if err := p.upload(ctx, saved); err != nil {
		p.logger.Warn("record upload failed, kept locally",
			"window_id", windowID,
			"record_id", saved.RecordID,
			"error", err,
		)
	}
	return saved, nil
}

func (p *Provider) upload(ctx context.Context, record schema.FormDataRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	target := p.endpoint("/windows/" + url.PathEscape(record.WindowID) + "/records")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return &provider.NetworkError{Op: http.MethodPost, URL: target, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &provider.NetworkError{Op: http.MethodPost, URL: target, StatusCode: resp.StatusCode}
	}
	return nil
}

func (p *Provider) GetFormData(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	return provider.FetchRecord(ctx, p.store, p.label(), windowID, recordID)
}

// IsConnected probes /health. Transport failures and non-2xx responses are
// reported as a NetworkError alongside false.
func (p *Provider) IsConnected(ctx context.Context) (bool, error) {
	if _, _, err := p.get(ctx, "/health"); err != nil {
		if errors.Is(err, errNotFound) {
			return false, &provider.NetworkError{Op: http.MethodGet, URL: p.endpoint("/health"), StatusCode: http.StatusNotFound}
		}
		return false, err
	}
	return true, nil
}

// CacheSize counts cached windows and reference lists, expired or not.
func (p *Provider) CacheSize() int {
	return p.windows.Len() + p.references.Len()
}

// ClearCache drops cached windows, lists and embedded references.
func (p *Provider) ClearCache() {
	p.windows.Clear()
	p.summaries.Clear()
	p.references.Clear()
	p.mu.Lock()
	p.resolvers = make(map[string]*reference.Resolver)
	p.embedded = make(map[string]string)
	p.mu.Unlock()
}

func (p *Provider) endpoint(path string) string {
	return p.baseURL + p.prefix + path
}

// shared runs fetch once per key for all concurrent callers. The fetch runs
// under a context detached from the caller that started it, so one caller
// giving up does not fail the others; each caller still stops waiting when
// its own ctx is done. Requests stay bounded by the request timeout in get.
func (p *Provider) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return fetch(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// get issues a GET and returns the body. 404 maps to errNotFound; other
// failures are NetworkErrors.
func (p *Provider) get(ctx context.Context, path string) ([]byte, string, error) {
	target := p.endpoint(path)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, target, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, target, &provider.NetworkError{Op: http.MethodGet, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, target, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, target, &provider.NetworkError{Op: http.MethodGet, URL: target, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, target, &provider.NetworkError{Op: http.MethodGet, URL: target, Err: err}
	}
	return data, target, nil
}

// getJSON decodes the body at path into out after key normalization.
func (p *Provider) getJSON(ctx context.Context, path string, out any) (string, error) {
	raw, target, err := p.get(ctx, path)
	if err != nil {
		return target, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return target, &adapter.ParseError{Err: err}
	}
	normalized, err := json.Marshal(p.normalize(decoded))
	if err != nil {
		return target, err
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return target, &adapter.ParseError{Err: err}
	}
	return target, nil
}

func cloneSummaries(in []schema.WindowSummary) []schema.WindowSummary {
	return append([]schema.WindowSummary(nil), in...)
}

func cloneValues(in []schema.ReferenceValue) []schema.ReferenceValue {
	out := make([]schema.ReferenceValue, len(in))
	copy(out, in)
	return out
}

var _ provider.Provider = (*Provider)(nil)
