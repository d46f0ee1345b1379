// Package remoteapi talks to backends that expose the window surface under
// /api/v1 with PascalCase or snake_case keys. Payloads are normalized into
// the adapter's camelCase before adaptation; caching and reference handling
// are shared with the external provider.
package remoteapi

import (
	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/providers/external"
)

// DefaultPathPrefix is where the remote surface is mounted.
const DefaultPathPrefix = "/api/v1"

// Provider is the remote API implementation.
type Provider struct {
	*external.Provider
}

// New builds a provider for the backend at baseURL. Options are those of the
// external provider; WithPathPrefix may override the mount point.
func New(baseURL string, opts ...external.Option) (*Provider, error) {
	base := []external.Option{
		external.WithKind(provider.KindAPI),
		external.WithPathPrefix(DefaultPathPrefix),
		external.WithKeyNormalizer(adapter.NormalizeKeys),
	}
	inner, err := external.New(baseURL, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Provider{Provider: inner}, nil
}

var _ provider.Provider = (*Provider)(nil)
