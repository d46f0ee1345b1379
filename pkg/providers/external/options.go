package external

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/formstore"
	"github.com/red1oon/ADUI/pkg/provider"
)

// Option configures the external provider.
type Option func(*Provider)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTTL sets the cache lifetime for windows and reference lists.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithRequestTimeout bounds every request, including health probes.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithClock overrides the time source used by the caches.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithStore overrides the local record store.
func WithStore(store formstore.Store) Option {
	return func(p *Provider) {
		if store != nil {
			p.store = store
		}
	}
}

// WithAdapter overrides the adapter applied to fetched documents.
func WithAdapter(a *adapter.Adapter) Option {
	return func(p *Provider) {
		if a != nil {
			p.adapter = a
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

// WithPathPrefix mounts every endpoint under prefix, e.g. "/api/v1".
func WithPathPrefix(prefix string) Option {
	return func(p *Provider) {
		p.prefix = "/" + strings.Trim(prefix, "/")
		if p.prefix == "/" {
			p.prefix = ""
		}
	}
}

// WithKeyNormalizer rewrites decoded payloads before they are read. Used by
// backends whose wire casing differs from the adapter's.
func WithKeyNormalizer(fn func(any) any) Option {
	return func(p *Provider) {
		if fn != nil {
			p.normalize = fn
		}
	}
}

// WithKind reports a different provider kind. Variants speaking another
// dialect of the same HTTP surface use it.
func WithKind(kind provider.Kind) Option {
	return func(p *Provider) {
		if kind.Valid() {
			p.kind = kind
		}
	}
}
