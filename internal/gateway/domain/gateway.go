// Package domain declares the capabilities a payment gateway may offer to the
// subscription store.
package domain

import (
	"context"
	"errors"

	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
)

var ErrGatewayNotFound = errors.New("gateway_not_found")

// Gateway is a named payment integration. Optional capabilities are
// discovered by type assertion.
type Gateway interface {
	Name() string
}

// SubscriptionRefresher updates a subscription in place from gateway-side data.
type SubscriptionRefresher interface {
	RefreshSubscription(ctx context.Context, subscription *subscriptiondomain.Subscription) error
}

// SubscriptionCanceller cancels the recurring charge behind a subscription.
type SubscriptionCanceller interface {
	CancelSubscription(ctx context.Context, subscription *subscriptiondomain.Subscription) error
}

// OrderCanceller is the legacy cancellation path for gateways that only
// understand orders.
type OrderCanceller interface {
	CancelOrder(ctx context.Context, order subscriptiondomain.OrderRef) error
}

// Resolver looks up a gateway by name.
type Resolver interface {
	Lookup(name string) (Gateway, error)
}
