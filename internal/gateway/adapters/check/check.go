// Package check is the offline "pay by check" gateway. There is no remote
// state, so only the legacy order cancellation is offered and it always
// succeeds.
package check

import (
	"context"

	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"go.uber.org/zap"
)

const Name = "check"

type Gateway struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Gateway {
	return &Gateway{log: log.Named("gateway.check")}
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) CancelOrder(ctx context.Context, order subscriptiondomain.OrderRef) error {
	g.log.Info("check subscription cancelled",
		zap.Int64("user_id", order.UserID),
		zap.Int64("membership_level_id", order.MembershipLevelID),
		zap.String("subscription_transaction_id", order.SubscriptionTransactionID),
	)
	return nil
}
