package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/membership/internal/clock"
	"github.com/smallbiznis/membership/internal/config"
	gatewaydomain "github.com/smallbiznis/membership/internal/gateway/domain"
	"github.com/smallbiznis/membership/internal/identity"
	"github.com/smallbiznis/membership/internal/lock"
	obslogger "github.com/smallbiznis/membership/internal/observability/logger"
	"github.com/smallbiznis/membership/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/membership/internal/order/domain"
	"github.com/smallbiznis/membership/internal/providers/email"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	userdomain "github.com/smallbiznis/membership/internal/user/domain"
	"github.com/smallbiznis/membership/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock     clock.Clock
	repo      subscriptiondomain.Repository
	orderRepo orderdomain.Repository
	userRepo  userdomain.Repository
	gateways  gatewaydomain.Resolver
	email     email.Provider
	site      config.SiteSettingsProvider
	metrics   *metrics.Metrics
	locker    *lock.Locker
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      subscriptiondomain.Repository
	OrderRepo orderdomain.Repository
	UserRepo  userdomain.Repository
	Gateways  gatewaydomain.Resolver
	Email     email.Provider
	Site      config.SiteSettingsProvider
	Metrics   *metrics.Metrics `optional:"true"`
	Locker    *lock.Locker     `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	site := p.Site
	if site == nil {
		site = config.StaticSiteSettings(config.DefaultSiteSettings())
	}
	mailer := p.Email
	if mailer == nil {
		mailer = &email.NoOpProvider{}
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		clock:     p.Clock,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
		userRepo:  p.UserRepo,
		gateways:  p.Gateways,
		email:     mailer,
		site:      site,
		metrics:   p.Metrics,
		locker:    p.Locker,
	}
}

// Load implements domain.Service.
func (s *Service) Load(ctx context.Context, id int64) (*subscriptiondomain.Subscription, error) {
	if id <= 0 {
		return nil, nil
	}
	return s.repo.FindByID(ctx, s.db, id)
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, args subscriptiondomain.ListArgs) ([]*subscriptiondomain.Subscription, error) {
	items := []*subscriptiondomain.Subscription{}

	orderBy := args.ResolvedOrderBy()
	if !subscriptiondomain.ValidOrderBy(orderBy) {
		obslogger.WithContext(ctx, s.log).Warn("rejected subscription ordering", zap.String("orderby", orderBy))
		return items, nil
	}

	ids, err := s.repo.ListIDs(ctx, s.db, args)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		item, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			s.log.Warn("failed to hydrate subscription", zap.Int64("subscription_id", id), zap.Error(err))
			continue
		}
		if item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, args subscriptiondomain.ListArgs) (*subscriptiondomain.Subscription, error) {
	if args.IsEmpty() {
		return nil, nil
	}

	items, err := s.List(ctx, args.WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ListForUser implements domain.Service.
func (s *Service) ListForUser(ctx context.Context, userID int64, levelIDs []int64, statuses []subscriptiondomain.Status) ([]*subscriptiondomain.Subscription, error) {
	if userID == 0 {
		current, ok := identity.UserIDFromContext(ctx)
		if !ok {
			return []*subscriptiondomain.Subscription{}, nil
		}
		userID = current
	}
	if statuses == nil {
		statuses = []subscriptiondomain.Status{subscriptiondomain.StatusActive}
	}

	return s.List(ctx, subscriptiondomain.ListArgs{
		UserID:            []int64{userID},
		MembershipLevelID: levelIDs,
		Status:            statuses,
	})
}

// FindByTransaction implements domain.Service.
func (s *Service) FindByTransaction(ctx context.Context, transactionID, gateway, environment string) (*subscriptiondomain.Subscription, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, nil
	}

	return s.Get(ctx, subscriptiondomain.ListArgs{
		SubscriptionTransactionID: []string{transactionID},
		Gateway:                   []string{gateway},
		GatewayEnvironment:        []string{environment},
	})
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (*subscriptiondomain.Subscription, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	existing, err := s.FindByTransaction(ctx, req.SubscriptionTransactionID, req.Gateway, req.GatewayEnvironment)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, subscriptiondomain.ErrDuplicateSubscription
	}

	status := req.Status
	if status == "" {
		status = subscriptiondomain.StatusActive
	}
	subscription := &subscriptiondomain.Subscription{
		UserID:                    req.UserID,
		MembershipLevelID:         req.MembershipLevelID,
		Gateway:                   strings.TrimSpace(req.Gateway),
		GatewayEnvironment:        strings.TrimSpace(req.GatewayEnvironment),
		SubscriptionTransactionID: strings.TrimSpace(req.SubscriptionTransactionID),
		StartDate:                 req.StartDate,
		EndDate:                   req.EndDate,
		NextPaymentDate:           req.NextPaymentDate,
		BillingAmount:             req.BillingAmount,
		CycleNumber:               req.CycleNumber,
		CyclePeriod:               req.CyclePeriod,
		BillingLimit:              req.BillingLimit,
		TrialAmount:               req.TrialAmount,
		TrialLimit:                req.TrialLimit,
		Status:                    status,
	}

	ok, err := s.Update(ctx, subscription)
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, subscriptiondomain.ErrDuplicateSubscription
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	s.metrics.RecordSubscriptionCreated(ctx, subscription.Gateway)
	obslogger.WithSubscription(obslogger.WithContext(ctx, s.log), subscription.ID, subscription.Gateway,
		subscription.GatewayEnvironment, subscription.SubscriptionTransactionID).
		Info("subscription created", zap.Int64("user_id", subscription.UserID))
	return subscription, nil
}

func validateCreate(req subscriptiondomain.CreateRequest) error {
	missing := func(field subscriptiondomain.Field) error {
		return fmt.Errorf("%w: %s", subscriptiondomain.ErrMissingRequiredField, field)
	}
	switch {
	case req.UserID == 0:
		return missing(subscriptiondomain.FieldUserID)
	case req.MembershipLevelID == 0:
		return missing(subscriptiondomain.FieldMembershipLevelID)
	case strings.TrimSpace(req.SubscriptionTransactionID) == "":
		return missing(subscriptiondomain.FieldSubscriptionTransactionID)
	case strings.TrimSpace(req.Gateway) == "":
		return missing(subscriptiondomain.FieldGateway)
	case strings.TrimSpace(req.GatewayEnvironment) == "":
		return missing(subscriptiondomain.FieldGatewayEnvironment)
	}
	return nil
}

// Update implements domain.Service. The gateway refreshes the record when it
// can; otherwise dates are inferred from order history.
func (s *Service) Update(ctx context.Context, subscription *subscriptiondomain.Subscription) (bool, error) {
	if subscription == nil {
		return false, nil
	}
	log := obslogger.WithSubscription(obslogger.WithContext(ctx, s.log), subscription.ID, subscription.Gateway,
		subscription.GatewayEnvironment, subscription.SubscriptionTransactionID)

	if refresher, ok := s.refresher(subscription.Gateway); ok {
		if err := refresher.RefreshSubscription(ctx, subscription); err != nil {
			log.Warn("gateway refresh failed", zap.Error(err))
		} else {
			s.metrics.RecordSubscriptionRefreshed(ctx, subscription.Gateway, "gateway")
		}
	} else {
		if err := s.inferFromOrders(ctx, subscription); err != nil {
			return false, err
		}
		s.metrics.RecordSubscriptionRefreshed(ctx, subscription.Gateway, "history")
	}

	id, err := s.Save(ctx, subscription)
	if err != nil {
		return false, err
	}
	return id > 0, nil
}

func (s *Service) refresher(gateway string) (gatewaydomain.SubscriptionRefresher, bool) {
	if s.gateways == nil {
		return nil, false
	}
	gw, err := s.gateways.Lookup(gateway)
	if err != nil {
		return nil, false
	}
	refresher, ok := gw.(gatewaydomain.SubscriptionRefresher)
	return refresher, ok
}

func (s *Service) inferFromOrders(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	key := orderKey(subscription)

	earliest, err := s.orderRepo.Earliest(ctx, s.db, key)
	if err != nil {
		return err
	}
	if earliest != nil {
		start := earliest.Timestamp.UTC()
		subscription.StartDate = &start
	}

	if subscription.CycleNumber <= 0 {
		return nil
	}
	if subscriptiondomain.InCheckout(ctx) && subscription.NextPaymentDate != nil {
		return nil
	}

	latest, err := s.orderRepo.Latest(ctx, s.db, key)
	if err != nil {
		return err
	}
	if latest != nil {
		next := subscription.CyclePeriod.AddTo(latest.Timestamp.UTC(), subscription.CycleNumber)
		subscription.NextPaymentDate = &next
	}
	return nil
}

func orderKey(subscription *subscriptiondomain.Subscription) orderdomain.SubscriptionKey {
	return orderdomain.SubscriptionKey{
		TransactionID: subscription.SubscriptionTransactionID,
		Gateway:       subscription.Gateway,
		Environment:   subscription.GatewayEnvironment,
	}
}

// Save implements domain.Service.
func (s *Service) Save(ctx context.Context, subscription *subscriptiondomain.Subscription) (int64, error) {
	if subscription == nil || !subscription.HasGatewayKey() {
		return 0, subscriptiondomain.ErrMissingGatewayKey
	}

	subscription.Normalize(s.clock.Now())

	if subscription.ID == 0 {
		if err := s.repo.Insert(ctx, s.db, subscription); err != nil {
			return 0, err
		}
		return subscription.ID, nil
	}

	if err := s.repo.Replace(ctx, s.db, subscription); err != nil {
		return 0, err
	}
	return subscription.ID, nil
}

// InitialPayment implements domain.Service.
func (s *Service) InitialPayment(ctx context.Context, subscription *subscriptiondomain.Subscription) (decimal.Decimal, error) {
	if subscription == nil {
		return decimal.Zero, nil
	}
	if amount, ok := subscription.CachedInitialPayment(); ok {
		return amount, nil
	}

	order, err := s.orderRepo.Earliest(ctx, s.db, orderKey(subscription))
	if err != nil {
		return decimal.Zero, err
	}
	amount := decimal.Zero
	if order != nil {
		amount = order.Total
	}
	subscription.CacheInitialPayment(amount)
	return amount, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gatewaydomain.ErrGatewayNotFound)
}
