// Package domain contains the subscription record, its field set and query arguments.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a subscription lifecycle state. Only active and cancelled carry
// behaviour; other values are stored as given.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// CyclePeriod is the calendar unit of a billing cycle.
type CyclePeriod string

const (
	CycleDay   CyclePeriod = "Day"
	CycleWeek  CyclePeriod = "Week"
	CycleMonth CyclePeriod = "Month"
	CycleYear  CyclePeriod = "Year"
)

// AddTo advances t by n periods using calendar arithmetic. Unknown periods
// return t unchanged.
func (p CyclePeriod) AddTo(t time.Time, n int) time.Time {
	switch CyclePeriod(strings.ToLower(string(p))) {
	case "day":
		return t.AddDate(0, 0, n)
	case "week":
		return t.AddDate(0, 0, 7*n)
	case "month":
		return t.AddDate(0, n, 0)
	case "year":
		return t.AddDate(n, 0, 0)
	default:
		return t
	}
}

// Subscription is one recurring-billing agreement between a user, a
// membership level and a gateway-side recurring charge.
type Subscription struct {
	ID                        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID                    int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	MembershipLevelID         int64           `gorm:"column:membership_level_id;not null;index" json:"membership_level_id"`
	Gateway                   string          `gorm:"column:gateway;type:varchar(64);not null;uniqueIndex:idx_membership_subscriptions_natural_key,priority:1" json:"gateway"`
	GatewayEnvironment        string          `gorm:"column:gateway_environment;type:varchar(64);not null;uniqueIndex:idx_membership_subscriptions_natural_key,priority:2" json:"gateway_environment"`
	SubscriptionTransactionID string          `gorm:"column:subscription_transaction_id;type:varchar(128);not null;uniqueIndex:idx_membership_subscriptions_natural_key,priority:3" json:"subscription_transaction_id"`
	StartDate                 *time.Time      `gorm:"column:startdate" json:"startdate"`
	EndDate                   *time.Time      `gorm:"column:enddate" json:"enddate"`
	NextPaymentDate           *time.Time      `gorm:"column:next_payment_date" json:"next_payment_date"`
	BillingAmount             decimal.Decimal `gorm:"column:billing_amount;type:decimal(18,8);not null" json:"billing_amount"`
	CycleNumber               int             `gorm:"column:cycle_number;not null" json:"cycle_number"`
	CyclePeriod               CyclePeriod     `gorm:"column:cycle_period;type:varchar(10);not null" json:"cycle_period"`
	BillingLimit              int             `gorm:"column:billing_limit;not null" json:"billing_limit"`
	TrialAmount               decimal.Decimal `gorm:"column:trial_amount;type:decimal(18,8);not null" json:"trial_amount"`
	TrialLimit                int             `gorm:"column:trial_limit;not null" json:"trial_limit"`
	Status                    Status          `gorm:"column:status;type:varchar(20);not null;index" json:"status"`

	initialPayment *decimal.Decimal
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "membership_subscriptions" }

// New returns an empty, unsaved subscription.
func New() *Subscription {
	return &Subscription{}
}

// HasGatewayKey reports whether every part of the natural key is set.
func (s *Subscription) HasGatewayKey() bool {
	return strings.TrimSpace(s.Gateway) != "" &&
		strings.TrimSpace(s.GatewayEnvironment) != "" &&
		strings.TrimSpace(s.SubscriptionTransactionID) != ""
}

// CachedInitialPayment returns the memoized initial payment, if computed.
func (s *Subscription) CachedInitialPayment() (decimal.Decimal, bool) {
	if s.initialPayment == nil {
		return decimal.Zero, false
	}
	return *s.initialPayment, true
}

func (s *Subscription) CacheInitialPayment(amount decimal.Decimal) {
	s.initialPayment = &amount
}

// Normalize applies the status invariants enforced on every write.
func (s *Subscription) Normalize(now time.Time) {
	now = now.UTC()
	if s.StartDate == nil || s.StartDate.IsZero() || s.StartDate.After(now) {
		start := now
		s.StartDate = &start
	}
	switch s.Status {
	case StatusActive:
		s.EndDate = nil
	case StatusCancelled:
		s.NextPaymentDate = nil
		if s.EndDate == nil || s.EndDate.IsZero() {
			end := now
			s.EndDate = &end
		}
	}
}

// OrderRef identifies an order by the subscription it belongs to. Gateways
// that only understand orders receive one when a subscription is cancelled.
type OrderRef struct {
	UserID                    int64  `json:"user_id"`
	MembershipLevelID         int64  `json:"membership_level_id"`
	Gateway                   string `json:"gateway"`
	GatewayEnvironment        string `json:"gateway_environment"`
	SubscriptionTransactionID string `json:"subscription_transaction_id"`
}

// OrderRefFor synthesizes the order-shaped view of a subscription.
func OrderRefFor(s *Subscription) OrderRef {
	return OrderRef{
		UserID:                    s.UserID,
		MembershipLevelID:         s.MembershipLevelID,
		Gateway:                   s.Gateway,
		GatewayEnvironment:        s.GatewayEnvironment,
		SubscriptionTransactionID: s.SubscriptionTransactionID,
	}
}
