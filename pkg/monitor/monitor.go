// Package monitor classifies the health of the active provider and swaps it
// for the fallback when errors persist.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/provider"
)

// State is the connection classification.
type State string

const (
	StateConnected State = "connected"
	StateCached    State = "cached"
	StateOffline   State = "offline"
	StateError     State = "error"
)

// States lists every state.
func States() []State {
	return []State{StateConnected, StateCached, StateOffline, StateError}
}

const (
	DefaultInterval    = 30 * time.Second
	DefaultGracePeriod = 2 * time.Minute
)

// Transition describes a state change.
type Transition struct {
	From     State
	To       State
	Provider provider.Kind
	Err      error
	At       time.Time
}

// Monitor polls the switch's active provider.
type Monitor struct {
	sw       *Switch
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics
	onChange func(Transition)

	mu           sync.Mutex
	state        State
	failingSince time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithGracePeriod sets how long the active provider may keep failing
// (cached, offline or error) before falling back.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.grace = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRegisterer registers the monitor's metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		m.metrics = newMetrics(reg)
	}
}

// OnChange registers a callback invoked on every state change.
func OnChange(fn func(Transition)) Option {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// New builds a monitor in the offline state.
func New(sw *Switch, opts ...Option) *Monitor {
	m := &Monitor{
		sw:       sw,
		interval: DefaultInterval,
		grace:    DefaultGracePeriod,
		now:      time.Now,
		logger:   logging.Nop(),
		state:    StateOffline,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.metrics == nil {
		m.metrics = newMetrics(nil)
	}
	m.metrics.setState(m.state)
	return m
}

// State returns the current classification.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Switch returns the provider switch being monitored.
func (m *Monitor) Switch() *Switch {
	return m.sw
}

// Check polls the active provider once, updates the state and applies the
// fallback policy. Non-polling providers are always available and are
// reported connected without being checked.
func (m *Monitor) Check(ctx context.Context) State {
	active := m.sw.Active()
	if !active.Kind().Polls() {
		m.transition(StateConnected, active.Kind(), nil)
		return m.State()
	}

	connected, err := active.IsConnected(ctx)
	next := classify(connected, err, active.CacheSize())
	m.metrics.checks.WithLabelValues(string(active.Kind()), string(next)).Inc()
	m.transition(next, active.Kind(), err)

	if next != StateConnected && m.graceExpired() {
		m.fallBack()
	}
	return m.State()
}

// Retry performs an immediate check and restarts the grace period, which
// cancels a fallback that was about to happen.
func (m *Monitor) Retry(ctx context.Context) State {
	m.mu.Lock()
	m.failingSince = time.Time{}
	m.mu.Unlock()
	m.logger.Info("manual retry")
	return m.Check(ctx)
}

// Run polls until ctx is cancelled. Polling is suspended while the active
// provider is of a non-polling kind and resumes when the switch changes.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		changed := m.sw.Changed()
		active := m.sw.Active()

		if !active.Kind().Polls() {
			m.transition(StateConnected, active.Kind(), nil)
			m.logger.Debug("polling suspended", "provider", active.Kind())
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				continue
			}
		}

		m.Check(ctx)
		ticker := time.NewTicker(m.interval)
		swapped := false
		for !swapped {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return nil
			case <-changed:
				swapped = true
			case <-ticker.C:
				m.Check(ctx)
			}
		}
		ticker.Stop()
	}
}

func classify(connected bool, err error, cacheSize int) State {
	switch {
	case err == nil && connected:
		return StateConnected
	case err == nil, provider.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		if cacheSize > 0 {
			return StateCached
		}
		return StateOffline
	default:
		return StateError
	}
}

func (m *Monitor) transition(next State, kind provider.Kind, err error) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	now := m.now()
	switch {
	case next == StateConnected:
		m.failingSince = time.Time{}
	case m.failingSince.IsZero():
		m.failingSince = now
	}
	m.mu.Unlock()

	if prev == next {
		return
	}
	m.metrics.setState(next)
	m.logger.Info("connection state changed",
		"from", prev,
		"to", next,
		"provider", kind,
		"error", err,
	)
	if m.onChange != nil {
		m.onChange(Transition{From: prev, To: next, Provider: kind, Err: err, At: now})
	}
}

func (m *Monitor) graceExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.failingSince.IsZero() && m.now().Sub(m.failingSince) >= m.grace
}

func (m *Monitor) fallBack() {
	from := m.sw.Active().Kind()
	if !m.sw.FallBack() {
		return
	}
	m.metrics.fallbacks.Inc()
	m.logger.Warn("provider failing beyond grace period, falling back",
		"from", from,
		"to", m.sw.Active().Kind(),
		"grace", m.grace,
	)
	m.transition(StateConnected, m.sw.Active().Kind(), nil)
}
