package gateway

import (
	"strings"

	"github.com/smallbiznis/membership/internal/gateway/domain"
)

type Registry struct {
	gateways map[string]domain.Gateway
}

func NewRegistry(gateways ...domain.Gateway) *Registry {
	registry := &Registry{gateways: map[string]domain.Gateway{}}
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		name := normalize(gw.Name())
		if name == "" {
			continue
		}
		registry.gateways[name] = gw
	}
	return registry
}

func (r *Registry) Exists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.gateways[normalize(name)]
	return ok
}

func (r *Registry) Lookup(name string) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrGatewayNotFound
	}
	gw, ok := r.gateways[normalize(name)]
	if !ok {
		return nil, domain.ErrGatewayNotFound
	}
	return gw, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
