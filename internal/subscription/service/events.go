package service

import (
	"context"
	"errors"
	"time"

	obslogger "github.com/smallbiznis/membership/internal/observability/logger"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"go.uber.org/zap"
)

const (
	eventRecurringPaymentCompleted = "recurring_payment_completed"
	eventLockTTL                   = 30 * time.Second
)

// HandleRecurringPaymentCompleted implements domain.Service. The matching
// subscription is refreshed so its next payment date moves forward.
func (s *Service) HandleRecurringPaymentCompleted(ctx context.Context, order subscriptiondomain.OrderRef) error {
	log := obslogger.WithSubscription(obslogger.WithContext(ctx, s.log), 0, order.Gateway,
		order.GatewayEnvironment, order.SubscriptionTransactionID)

	if s.locker != nil {
		key := s.locker.Key("subscription", order.Gateway, order.GatewayEnvironment, order.SubscriptionTransactionID)
		token, acquired, err := s.locker.TryLock(ctx, key, eventLockTTL)
		switch {
		case err != nil:
			log.Warn("subscription lock unavailable, continuing unlocked", zap.Error(err))
		case !acquired:
			return subscriptiondomain.ErrSubscriptionBusy
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn("failed to release subscription lock", zap.Error(err))
				}
			}()
		}
	}

	subscription, err := s.FindByTransaction(ctx, order.SubscriptionTransactionID, order.Gateway, order.GatewayEnvironment)
	if err != nil {
		return err
	}
	if subscription == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	s.metrics.RecordPaymentEvent(ctx, subscription.Gateway, eventRecurringPaymentCompleted)

	ok, err := s.Update(ctx, subscription)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("subscription_update_failed")
	}
	log.Info("recurring payment recorded", zap.Int64("subscription_id", subscription.ID))
	return nil
}
