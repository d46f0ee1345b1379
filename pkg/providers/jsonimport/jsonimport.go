// Package jsonimport loads a window document from a local file or raw string
// through a staged pipeline that records a diagnostic per stage. Imported
// data never expires; each import replaces the previous one.
package jsonimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/red1oon/ADUI/internal/loader"
	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/schema"
)

// Provider serves imported windows.
type Provider struct {
	importMu sync.Mutex

	mu          sync.RWMutex
	diagnostics []Diagnostic

	windows    *provider.Cache[schema.WindowDefinition]
	references *provider.Cache[[]schema.ReferenceValue]
	loader     *loader.Loader
	adapter    *adapter.Adapter
	store      formstore.Store
	logger     *slog.Logger
	now        func() time.Time
	allowHTTP  bool
}

// Option configures the provider.
type Option func(*Provider)

// WithAdapter overrides the adapter used in the adapt stage.
func WithAdapter(a *adapter.Adapter) Option {
	return func(p *Provider) {
		if a != nil {
			p.adapter = a
		}
	}
}

// WithStore overrides the record store.
func WithStore(store formstore.Store) Option {
	return func(p *Provider) {
		if store != nil {
			p.store = store
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the diagnostic timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithHTTPSources allows importing from http(s) URLs.
func WithHTTPSources(allow bool) Option {
	return func(p *Provider) {
		p.allowHTTP = allow
	}
}

// New builds an empty provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		logger: logging.Nop(),
		now:    time.Now,
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
	p.loader = loader.New(loader.Options{AllowHTTP: p.allowHTTP})
	p.windows = provider.NewCache[schema.WindowDefinition](0, p.now)
	p.references = provider.NewCache[[]schema.ReferenceValue](0, p.now)
	return p
}

// Import runs the pipeline for src after clearing previously imported data.
// Failures return an *ImportError carrying the diagnostic log.
func (p *Provider) Import(ctx context.Context, src schema.Source) (schema.WindowDefinition, error) {
	p.importMu.Lock()
	defer p.importMu.Unlock()

	p.ClearImportedData()
	r := &run{p: p}
	window, err := r.execute(ctx, src)

	p.mu.Lock()
	p.diagnostics = r.log
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("import failed", "error", err)
		return schema.WindowDefinition{}, err
	}
	p.logger.Info("window imported", "window_id", window.ID, "tabs", len(window.Tabs))
	return window.Clone(), nil
}

// ImportFile imports a local path, file:// URI or, when enabled, an http(s)
// URL.
func (p *Provider) ImportFile(ctx context.Context, location string) (schema.WindowDefinition, error) {
	src, err := schema.ParseSource(location)
	if err != nil {
		p.importMu.Lock()
		defer p.importMu.Unlock()
		p.ClearImportedData()
		r := &run{p: p}
		importErr := r.fail(StageFileAccess, err)
		p.mu.Lock()
		p.diagnostics = r.log
		p.mu.Unlock()
		return schema.WindowDefinition{}, importErr
	}
	return p.Import(ctx, src)
}

// ImportString imports raw document content.
func (p *Provider) ImportString(ctx context.Context, name, content string) (schema.WindowDefinition, error) {
	return p.Import(ctx, schema.SourceFromString(name, content))
}

// Diagnostics returns the log of the most recent import.
func (p *Provider) Diagnostics() []Diagnostic {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Diagnostic(nil), p.diagnostics...)
}

// ClearImportedData drops imported windows, references and diagnostics.
func (p *Provider) ClearImportedData() {
	p.windows.Clear()
	p.references.Clear()
	p.mu.Lock()
	p.diagnostics = nil
	p.mu.Unlock()
}

func (p *Provider) Kind() provider.Kind {
	return provider.KindJSONFile
}

func (p *Provider) GetWindowDefinition(ctx context.Context, windowID string) (schema.WindowDefinition, error) {
	if err := ctx.Err(); err != nil {
		return schema.WindowDefinition{}, err
	}
	entry, ok := p.windows.Get(strings.TrimSpace(windowID))
	if !ok {
		return schema.WindowDefinition{}, fmt.Errorf("json import provider: window %q: %w", windowID, provider.ErrWindowNotFound)
	}
	return entry.Value.Clone(), nil
}

func (p *Provider) GetAvailableWindows(ctx context.Context) ([]schema.WindowSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := p.windows.Keys()
	sort.Strings(keys)
	out := make([]schema.WindowSummary, 0, len(keys))
	for _, key := range keys {
		if entry, ok := p.windows.Get(key); ok {
			out = append(out, entry.Value.Summary())
		}
	}
	return out, nil
}

func (p *Provider) GetReferenceValues(ctx context.Context, referenceID string) ([]schema.ReferenceValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := p.references.Get(strings.TrimSpace(referenceID))
	if !ok {
		p.logger.Debug("reference not found", "provider", provider.KindJSONFile, "reference_id", referenceID)
		return []schema.ReferenceValue{}, nil
	}
	return append([]schema.ReferenceValue(nil), entry.Value...), nil
}

func (p *Provider) SaveFormData(ctx context.Context, windowID string, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	if _, ok := p.windows.Get(windowID); !ok {
		return schema.FormDataRecord{}, fmt.Errorf("json import provider: save window %q: %w", windowID, provider.ErrWindowNotFound)
	}
	record.WindowID = windowID
	saved, err := p.store.Save(ctx, record)
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("json import provider: save window %q: %w", windowID, err)
	}
	return saved, nil
}

func (p *Provider) GetFormData(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	return provider.FetchRecord(ctx, p.store, "json import provider", windowID, recordID)
}

// IsConnected is always true; imported data is local.
func (p *Provider) IsConnected(ctx context.Context) (bool, error) {
	return true, ctx.Err()
}

// CacheSize counts imported windows and reference lists.
func (p *Provider) CacheSize() int {
	return p.windows.Len() + p.references.Len()
}

// IsImportError reports whether err is an *ImportError and returns it.
func IsImportError(err error) (*ImportError, bool) {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr, true
	}
	return nil, false
}

var _ provider.Provider = (*Provider)(nil)
