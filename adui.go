// Package adui assembles a provider stack from configuration: the form record
// store, the selected provider, the mock fallback and the connection monitor.
package adui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/config"
	"github.com/red1oon/ADUI/pkg/displaylogic"
	"github.com/red1oon/ADUI/pkg/displaylogic/celeval"
	"github.com/red1oon/ADUI/pkg/displaylogic/expr"
	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/monitor"
	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/providers/external"
	"github.com/red1oon/ADUI/pkg/providers/jsonimport"
	"github.com/red1oon/ADUI/pkg/providers/mock"
	"github.com/red1oon/ADUI/pkg/providers/remoteapi"
)

type settings struct {
	logger     *slog.Logger
	store      formstore.Store
	httpClient *http.Client
	registerer prometheus.Registerer
	now        func() time.Time
	adapter    *adapter.Adapter
	onChange   func(monitor.Transition)
}

// Option customizes the assembled stack.
type Option func(*settings)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore supplies the record store instead of opening one from config.
func WithStore(store formstore.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithHTTPClient sets the client used by the networked providers.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithRegisterer registers monitor metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithClock overrides the time source for caches, records and the monitor.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAdapter sets the schema adapter shared by every provider.
func WithAdapter(a *adapter.Adapter) Option {
	return func(s *settings) {
		s.adapter = a
	}
}

// OnStateChange forwards monitor transitions to fn.
func OnStateChange(fn func(monitor.Transition)) Option {
	return func(s *settings) {
		s.onChange = fn
	}
}

func newSettings(cfg config.Config, opts []Option) *settings {
	s := &settings{logger: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.adapter == nil {
		s.adapter = adapter.New(
			adapter.WithLogger(s.logger),
			adapter.WithClock(s.now),
			adapter.WithDisplayLogic(cfg.DisplayLogicEnabled()),
		)
	}
	return s
}

// NewEvaluator returns the display logic evaluator cfg.DisplayLogic selects,
// or nil when rules are off.
func NewEvaluator(cfg config.Config) (displaylogic.Evaluator, error) {
	switch cfg.DisplayLogic {
	case "", config.DisplayLogicOff:
		return nil, nil
	case config.DisplayLogicExpr:
		return expr.New(), nil
	case config.DisplayLogicCEL:
		evaluator, err := celeval.New()
		if err != nil {
			return nil, fmt.Errorf("adui: %w", err)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("adui: unknown display logic %q", cfg.DisplayLogic)
	}
}

// OpenStore returns a Badger store under cfg.StorePath, or an in-memory store
// when the path is empty.
func OpenStore(cfg config.Config, logger *slog.Logger) (formstore.Store, error) {
	return openStore(cfg, logger, time.Now)
}

func openStore(cfg config.Config, logger *slog.Logger, now func() time.Time) (formstore.Store, error) {
	if cfg.StorePath == "" {
		return formstore.NewMemory(now), nil
	}
	bcfg := formstore.DefaultBadgerConfig(cfg.StorePath)
	bcfg.Logger = logger
	bcfg.Now = now
	store, err := formstore.OpenBadger(bcfg)
	if err != nil {
		return nil, fmt.Errorf("adui: open store: %w", err)
	}
	return store, nil
}

// NewProvider builds the provider selected by cfg.Provider. A json-file
// provider imports cfg.ImportPath before returning; import failures come back
// as *jsonimport.ImportError.
func NewProvider(ctx context.Context, cfg config.Config, opts ...Option) (provider.Provider, error) {
	s := newSettings(cfg, opts)
	if s.store == nil {
		store, err := openStore(cfg, s.logger, s.now)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s.build(ctx, cfg)
}

func (s *settings) build(ctx context.Context, cfg config.Config) (provider.Provider, error) {
	kind, err := provider.ParseKind(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("adui: %w", err)
	}
	logger := s.logger.With("provider", kind.String())

	switch kind {
	case provider.KindMock:
		p, err := mock.New(mock.WithStore(s.store), mock.WithLogger(logger), mock.WithAdapter(s.adapter))
		if err != nil {
			return nil, fmt.Errorf("adui: %w", err)
		}
		return p, nil
	case provider.KindExternal, provider.KindAPI:
		extOpts := []external.Option{
			external.WithTTL(cfg.CacheTTL),
			external.WithRequestTimeout(cfg.RequestTimeout),
			external.WithStore(s.store),
			external.WithLogger(logger),
			external.WithAdapter(s.adapter),
			external.WithClock(s.now),
		}
		if s.httpClient != nil {
			extOpts = append(extOpts, external.WithHTTPClient(s.httpClient))
		}
		if kind == provider.KindAPI {
			p, err := remoteapi.New(cfg.BaseURL, extOpts...)
			if err != nil {
				return nil, fmt.Errorf("adui: %w", err)
			}
			return p, nil
		}
		p, err := external.New(cfg.BaseURL, extOpts...)
		if err != nil {
			return nil, fmt.Errorf("adui: %w", err)
		}
		return p, nil
	case provider.KindJSONFile:
		p := jsonimport.New(
			jsonimport.WithStore(s.store),
			jsonimport.WithLogger(logger),
			jsonimport.WithAdapter(s.adapter),
			jsonimport.WithClock(s.now),
			jsonimport.WithHTTPSources(true),
		)
		if cfg.ImportPath != "" {
			if _, err := p.ImportFile(ctx, cfg.ImportPath); err != nil {
				return p, fmt.Errorf("adui: import %s: %w", cfg.ImportPath, err)
			}
		}
		return p, nil
	default:
		return nil, fmt.Errorf("adui: unsupported provider %q", kind)
	}
}

// NewSwitch pairs active with a mock fallback sharing store.
func NewSwitch(active provider.Provider, store formstore.Store, logger *slog.Logger) (*monitor.Switch, error) {
	fallback, err := newFallback(store, logger)
	if err != nil {
		return nil, err
	}
	return monitor.NewSwitch(active, fallback)
}

func newFallback(store formstore.Store, logger *slog.Logger) (*mock.Provider, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	opts := []mock.Option{mock.WithLogger(logger.With("provider", provider.KindMock.String()))}
	if store != nil {
		opts = append(opts, mock.WithStore(store))
	}
	fallback, err := mock.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("adui: fallback: %w", err)
	}
	return fallback, nil
}

// Stack is a fully wired provider setup. Provider delegates to whichever
// provider the monitor currently has active.
type Stack struct {
	Config   config.Config
	Store    formstore.Store
	Active   provider.Provider
	Switch   *monitor.Switch
	Monitor  *monitor.Monitor
	Provider provider.Provider
	Logger   *slog.Logger

	// Providers holds every provider the stack built, keyed by kind.
	Providers *provider.Registry

	ownsStore bool
}

// Open assembles the whole stack. Close releases the store when Open
// created it.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Stack, error) {
	s := newSettings(cfg, opts)
	owns := false
	if s.store == nil {
		store, err := openStore(cfg, s.logger, s.now)
		if err != nil {
			return nil, err
		}
		s.store = store
		owns = true
	}
	closeOnErr := func(err error) (*Stack, error) {
		if owns {
			err = errors.Join(err, s.store.Close())
		}
		return nil, err
	}

	active, err := s.build(ctx, cfg)
	if err != nil && active == nil {
		return closeOnErr(err)
	}
	if err != nil {
		// A failed initial import still yields an empty provider the monitor
		// never polls; callers can retry the import.
		s.logger.Warn("provider started without data", "error", err)
	}

	fallback, err := newFallback(s.store, s.logger)
	if err != nil {
		return closeOnErr(err)
	}
	sw, err := monitor.NewSwitch(active, fallback)
	if err != nil {
		return closeOnErr(err)
	}
	registry := provider.NewRegistry()
	if err := registry.Register(active); err != nil {
		return closeOnErr(fmt.Errorf("adui: %w", err))
	}
	if fallback.Kind() != active.Kind() {
		registry.MustRegister(fallback)
	}
	monOpts := []monitor.Option{
		monitor.WithInterval(cfg.PollInterval),
		monitor.WithGracePeriod(cfg.GracePeriod),
		monitor.WithClock(s.now),
		monitor.WithLogger(s.logger.With("component", "monitor")),
		monitor.WithRegisterer(s.registerer),
	}
	if s.onChange != nil {
		monOpts = append(monOpts, monitor.OnChange(s.onChange))
	}

	return &Stack{
		Config:    cfg,
		Store:     s.store,
		Active:    active,
		Switch:    sw,
		Monitor:   monitor.New(sw, monOpts...),
		Provider:  sw,
		Logger:    s.logger,
		Providers: registry,
		ownsStore: owns,
	}, nil
}

// Use makes the registered provider of kind active, for example to return to
// the configured backend after a fallback. The switch re-arms its fallback.
func (st *Stack) Use(kind provider.Kind) error {
	p, err := st.Providers.Get(kind)
	if err != nil {
		return fmt.Errorf("adui: use %s: %w", kind, err)
	}
	st.Switch.Swap(p)
	st.Logger.Info("active provider changed", "provider", kind)
	return nil
}

// Close releases resources held by the stack.
func (st *Stack) Close() error {
	if st == nil || !st.ownsStore || st.Store == nil {
		return nil
	}
	return st.Store.Close()
}
