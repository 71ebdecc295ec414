package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	stripego "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

const Name = "stripe"

var ErrEnvironmentNotConfigured = errors.New("stripe_environment_not_configured")

// Config holds secret keys keyed by gateway environment.
type Config struct {
	LiveSecretKey    string
	SandboxSecretKey string
	// Backends overrides the API endpoints; nil uses Stripe's.
	Backends *stripego.Backends
}

// Gateway refreshes and cancels Stripe subscriptions.
type Gateway struct {
	clients map[string]*client.API
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Gateway {
	g := &Gateway{
		clients: map[string]*client.API{},
		log:     log.Named("gateway.stripe"),
	}
	if key := strings.TrimSpace(cfg.LiveSecretKey); key != "" {
		g.clients["live"] = client.New(key, cfg.Backends)
	}
	if key := strings.TrimSpace(cfg.SandboxSecretKey); key != "" {
		api := client.New(key, cfg.Backends)
		g.clients["sandbox"] = api
		g.clients["test"] = api
	}
	return g
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) api(environment string) (*client.API, error) {
	api, ok := g.clients[strings.ToLower(strings.TrimSpace(environment))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEnvironmentNotConfigured, environment)
	}
	return api, nil
}

// RefreshSubscription copies start date, next payment date, billing terms and
// cancellation state from the live Stripe subscription.
func (g *Gateway) RefreshSubscription(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	api, err := g.api(subscription.GatewayEnvironment)
	if err != nil {
		return err
	}

	params := &stripego.SubscriptionParams{}
	params.Context = ctx
	remote, err := api.Subscriptions.Get(subscription.SubscriptionTransactionID, params)
	if err != nil {
		g.logStripeError("RefreshSubscription", subscription.SubscriptionTransactionID, err)
		return fmt.Errorf("stripe: retrieve subscription: %w", err)
	}

	applyRemote(subscription, remote)
	return nil
}

// CancelSubscription cancels immediately. A subscription Stripe no longer
// knows about counts as cancelled.
func (g *Gateway) CancelSubscription(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	api, err := g.api(subscription.GatewayEnvironment)
	if err != nil {
		return err
	}

	params := &stripego.SubscriptionCancelParams{
		Params: stripego.Params{
			Context: ctx,
		},
	}
	_, err = api.Subscriptions.Cancel(subscription.SubscriptionTransactionID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripego.ErrorCodeResourceMissing {
			g.log.Warn("stripe subscription already gone",
				zap.String("subscription_transaction_id", subscription.SubscriptionTransactionID),
			)
			return nil
		}
		g.logStripeError("CancelSubscription", subscription.SubscriptionTransactionID, err)
		return fmt.Errorf("stripe: cancel subscription: %w", err)
	}

	g.log.Info("stripe subscription cancelled",
		zap.String("subscription_transaction_id", subscription.SubscriptionTransactionID),
	)
	return nil
}

func applyRemote(subscription *subscriptiondomain.Subscription, remote *stripego.Subscription) {
	if remote.StartDate > 0 {
		start := time.Unix(remote.StartDate, 0).UTC()
		subscription.StartDate = &start
	}

	switch remote.Status {
	case stripego.SubscriptionStatusCanceled, stripego.SubscriptionStatusIncompleteExpired:
		subscription.Status = subscriptiondomain.StatusCancelled
		subscription.NextPaymentDate = nil
		if remote.EndedAt > 0 {
			end := time.Unix(remote.EndedAt, 0).UTC()
			subscription.EndDate = &end
		}
	default:
		if remote.CurrentPeriodEnd > 0 && !remote.CancelAtPeriodEnd {
			next := time.Unix(remote.CurrentPeriodEnd, 0).UTC()
			subscription.NextPaymentDate = &next
		} else {
			subscription.NextPaymentDate = nil
		}
	}

	if remote.Items == nil || len(remote.Items.Data) == 0 {
		return
	}
	item := remote.Items.Data[0]
	if item == nil || item.Price == nil {
		return
	}
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	subscription.BillingAmount = decimal.New(item.Price.UnitAmount, -2).Mul(decimal.NewFromInt(quantity))
	if recurring := item.Price.Recurring; recurring != nil {
		subscription.CycleNumber = int(recurring.IntervalCount)
		subscription.CyclePeriod = cyclePeriod(recurring.Interval)
	}
}

func cyclePeriod(interval stripego.PriceRecurringInterval) subscriptiondomain.CyclePeriod {
	switch interval {
	case stripego.PriceRecurringIntervalDay:
		return subscriptiondomain.CycleDay
	case stripego.PriceRecurringIntervalWeek:
		return subscriptiondomain.CycleWeek
	case stripego.PriceRecurringIntervalYear:
		return subscriptiondomain.CycleYear
	default:
		return subscriptiondomain.CycleMonth
	}
}

func (g *Gateway) logStripeError(operation, transactionID string, err error) {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		g.log.Error("stripe api error",
			zap.String("operation", operation),
			zap.String("subscription_transaction_id", transactionID),
			zap.String("type", string(stripeErr.Type)),
			zap.String("code", string(stripeErr.Code)),
			zap.String("request_id", stripeErr.RequestID),
			zap.Int("status_code", stripeErr.HTTPStatusCode),
		)
		return
	}
	g.log.Error("stripe request failed",
		zap.String("operation", operation),
		zap.String("subscription_transaction_id", transactionID),
		zap.Error(err),
	)
}
