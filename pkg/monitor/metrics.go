package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	state     *prometheus.GaugeVec
	checks    *prometheus.CounterVec
	fallbacks prometheus.Counter
}

// newMetrics registers with reg. A nil registerer builds unregistered
// collectors so several monitors can coexist in tests.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adui_connection_state",
			Help: "1 for the current connection state, 0 otherwise",
		}, []string{"state"}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adui_health_checks_total",
			Help: "Health checks by provider kind and resulting state",
		}, []string{"provider", "state"}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "adui_provider_fallbacks_total",
			Help: "Automatic swaps to the fallback provider",
		}),
	}
}

func (m *metrics) setState(current State) {
	for _, state := range States() {
		value := 0.0
		if state == current {
			value = 1
		}
		m.state.WithLabelValues(string(state)).Set(value)
	}
}
