package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	gatewaydomain "github.com/smallbiznis/membership/internal/gateway/domain"
	obslogger "github.com/smallbiznis/membership/internal/observability/logger"
	"github.com/smallbiznis/membership/internal/providers/email"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"go.uber.org/zap"
)

// Cancel implements domain.Service.
//
// The local record always ends up cancelled, even when the gateway refuses;
// the returned bool reports only the gateway outcome.
func (s *Service) Cancel(ctx context.Context, subscription *subscriptiondomain.Subscription) (bool, error) {
	if subscription == nil {
		return false, nil
	}
	log := obslogger.WithSubscription(obslogger.WithContext(ctx, s.log), subscription.ID, subscription.Gateway,
		subscription.GatewayEnvironment, subscription.SubscriptionTransactionID)

	ctx, guard := subscriptiondomain.WithCancelGuard(ctx)
	if seen := guard.Visit(subscription.ID); seen && subscription.Status != subscriptiondomain.StatusCancelled {
		log.Warn("cancel already in progress for subscription")
		s.metrics.RecordCancelFailure(ctx, subscription.Gateway, "reentrant")
		return false, nil
	}

	gatewayErr := s.cancelAtGateway(ctx, subscription)
	if gatewayErr != nil {
		log.Error("gateway cancellation failed", zap.Error(gatewayErr))
		s.metrics.RecordCancelFailure(ctx, subscription.Gateway, cancelFailureReason(gatewayErr))
		s.notifyCancelFailure(ctx, subscription, gatewayErr)
	}

	now := s.clock.Now().UTC()
	subscription.Status = subscriptiondomain.StatusCancelled
	subscription.EndDate = &now

	if _, err := s.Update(ctx, subscription); err != nil {
		return false, err
	}
	if _, err := s.Save(ctx, subscription); err != nil {
		return false, err
	}

	s.metrics.RecordSubscriptionCancelled(ctx, subscription.Gateway, gatewayErr == nil)
	log.Info("subscription cancelled", zap.Bool("gateway_ok", gatewayErr == nil))
	return gatewayErr == nil, nil
}

func (s *Service) cancelAtGateway(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	if s.gateways == nil {
		return subscriptiondomain.ErrGatewayUnsupported
	}
	gw, err := s.gateways.Lookup(subscription.Gateway)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %q", subscriptiondomain.ErrGatewayUnsupported, subscription.Gateway)
		}
		return err
	}

	switch capable := gw.(type) {
	case gatewaydomain.SubscriptionCanceller:
		return capable.CancelSubscription(ctx, subscription)
	case gatewaydomain.OrderCanceller:
		return capable.CancelOrder(ctx, subscriptiondomain.OrderRefFor(subscription))
	default:
		return fmt.Errorf("%w: %q", subscriptiondomain.ErrGatewayUnsupported, subscription.Gateway)
	}
}

func cancelFailureReason(err error) string {
	if errors.Is(err, subscriptiondomain.ErrGatewayUnsupported) {
		return "unsupported"
	}
	return "gateway_error"
}

func (s *Service) notifyCancelFailure(ctx context.Context, subscription *subscriptiondomain.Subscription, cause error) {
	site := s.site.Get()
	log := s.log.With(zap.Int64("subscription_id", subscription.ID))
	if strings.TrimSpace(site.AdminEmail) == "" {
		log.Warn("no admin email configured, skipping cancel failure notice")
		return
	}

	data := map[string]any{
		"site_name":                   site.SiteName,
		"user_id":                     subscription.UserID,
		"subscription_id":             subscription.ID,
		"gateway":                     subscription.Gateway,
		"gateway_environment":         subscription.GatewayEnvironment,
		"subscription_transaction_id": subscription.SubscriptionTransactionID,
		"admin_url":                   adminUserEditURL(site.AdminUserEditURL, subscription.UserID),
		"error":                       cause.Error(),
	}

	if s.userRepo != nil {
		user, err := s.userRepo.FindByID(ctx, s.db, subscription.UserID)
		if err != nil {
			log.Warn("failed to load user for cancel failure notice", zap.Error(err))
		}
		if user != nil {
			data["user_email"] = user.Email
			data["user_login"] = user.Login
			data["user_display_name"] = user.DisplayName
		}
	}

	if err := s.email.SendTemplate(ctx, []string{site.AdminEmail}, email.TemplateSubscriptionCancelFailed, data); err != nil {
		log.Error("failed to send cancel failure notice", zap.Error(err))
	}
}

func adminUserEditURL(base string, userID int64) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("user_id", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}
