package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/membership/internal/gateway/domain"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedGateway string

func (g namedGateway) Name() string { return string(g) }

type refreshingGateway struct{ namedGateway }

func (refreshingGateway) RefreshSubscription(context.Context, *subscriptiondomain.Subscription) error {
	return nil
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(namedGateway(" Check "), refreshingGateway{"stripe"}, nil, namedGateway(""))

	gw, err := registry.Lookup("CHECK")
	require.NoError(t, err)
	assert.Equal(t, " Check ", gw.Name())

	gw, err = registry.Lookup("stripe")
	require.NoError(t, err)
	_, ok := gw.(domain.SubscriptionRefresher)
	assert.True(t, ok)

	_, err = registry.Lookup("paypal")
	assert.True(t, errors.Is(err, domain.ErrGatewayNotFound))
	assert.False(t, registry.Exists(""))

	var empty *Registry
	_, err = empty.Lookup("stripe")
	assert.True(t, errors.Is(err, domain.ErrGatewayNotFound))
}
