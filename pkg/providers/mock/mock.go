// Package mock serves a fixed catalog of windows from memory. It is always
// connected and acts as the terminal fallback when a live backend fails.
package mock

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/reference"
	"github.com/red1oon/ADUI/pkg/schema"
)

//go:embed catalog/*.json
var catalogFS embed.FS

// staticReferences are the externally keyed lists the catalog points at.
var staticReferences = map[string][]schema.ReferenceValue{
	"REGIONS": {
		{Key: "north", Value: "North", SortOrder: 0},
		{Key: "south", Value: "South", SortOrder: 1},
		{Key: "east", Value: "East", SortOrder: 2},
		{Key: "west", Value: "West", SortOrder: 3},
	},
}

// Provider is the in-memory implementation.
type Provider struct {
	windows    map[string]schema.WindowDefinition
	references *reference.Resolver
	store      formstore.Store
	logger     *slog.Logger
}

// Option configures the mock provider.
type Option func(*options)

type options struct {
	store   formstore.Store
	logger  *slog.Logger
	adapter *adapter.Adapter
}

// WithStore overrides the record store.
func WithStore(store formstore.Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAdapter overrides the adapter used to load the catalog.
func WithAdapter(a *adapter.Adapter) Option {
	return func(o *options) {
		if a != nil {
			o.adapter = a
		}
	}
}

// New builds the provider, adapting the embedded catalog.
func New(opts ...Option) (*Provider, error) {
	cfg := options{
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = formstore.NewMemory(nil)
	}
	if cfg.adapter == nil {
		cfg.adapter = adapter.New(adapter.WithLogger(cfg.logger))
	}

	p := &Provider{
		windows:    make(map[string]schema.WindowDefinition),
		references: reference.New(),
		store:      cfg.store,
		logger:     cfg.logger,
	}
	for id, values := range staticReferences {
		p.references.Put(id, values)
	}

	entries, err := fs.ReadDir(catalogFS, "catalog")
	if err != nil {
		return nil, fmt.Errorf("mock provider: read catalog: %w", err)
	}
	for _, entry := range entries {
		name := path.Join("catalog", entry.Name())
		raw, err := catalogFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("mock provider: read %s: %w", name, err)
		}
		doc, err := schema.NewDocument(schema.SourceFromFS(name), raw)
		if err != nil {
			return nil, fmt.Errorf("mock provider: %s: %w", name, err)
		}
		result, err := cfg.adapter.AdaptDocument(context.Background(), doc)
		if err != nil {
			return nil, fmt.Errorf("mock provider: adapt %s: %w", name, err)
		}
		p.windows[result.Window.ID] = result.Window
		for _, id := range result.References.IDs() {
			values, _ := result.References.Get(id)
			p.references.Put(id, values)
		}
	}
	return p, nil
}

// MustNew panics when the embedded catalog cannot be adapted.
func MustNew(opts ...Option) *Provider {
	p, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Kind() provider.Kind {
	return provider.KindMock
}

func (p *Provider) GetWindowDefinition(ctx context.Context, windowID string) (schema.WindowDefinition, error) {
	if err := ctx.Err(); err != nil {
		return schema.WindowDefinition{}, err
	}
	window, ok := p.windows[strings.TrimSpace(windowID)]
	if !ok {
		return schema.WindowDefinition{}, fmt.Errorf("mock provider: window %q: %w", windowID, provider.ErrWindowNotFound)
	}
	return window.Clone(), nil
}

func (p *Provider) GetAvailableWindows(ctx context.Context) ([]schema.WindowSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]schema.WindowSummary, 0, len(p.windows))
	for _, window := range p.windows {
		out = append(out, window.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Provider) GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, ok := p.references.Get(referenceID)
	if !ok {
		p.logger.Debug("reference not found", "provider", provider.KindMock, "reference_id", referenceID)
		return []schema.ReferenceValue{}, nil
	}
	return values, nil
}

func (p *Provider) SaveFormData(ctx context.Context, windowID string, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	if _, ok := p.windows[windowID]; !ok {
		return schema.FormDataRecord{}, fmt.Errorf("mock provider: save window %q: %w", windowID, provider.ErrWindowNotFound)
	}
	record.WindowID = windowID
	saved, err := p.store.Save(ctx, record)
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("mock provider: save window %q: %w", windowID, err)
	}
	return saved, nil
}

func (p *Provider) GetFormData(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	return provider.FetchRecord(ctx, p.store, "mock provider", windowID, recordID)
}

// IsConnected always reports true.
func (p *Provider) IsConnected(ctx context.Context) (bool, error) {
	return true, ctx.Err()
}

// CacheSize reports the number of catalog windows.
func (p *Provider) CacheSize() int {
	return len(p.windows)
}

var _ provider.Provider = (*Provider)(nil)
