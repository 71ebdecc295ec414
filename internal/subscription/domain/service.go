package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Date format specifiers accepted by the date accessors besides a Go layout.
const (
	FormatTimestamp  = "timestamp"
	FormatDateFormat = "date_format"
)

type CreateRequest struct {
	UserID                    int64           `json:"user_id"`
	MembershipLevelID         int64           `json:"membership_level_id"`
	Gateway                   string          `json:"gateway"`
	GatewayEnvironment        string          `json:"gateway_environment"`
	SubscriptionTransactionID string          `json:"subscription_transaction_id"`
	Status                    Status          `json:"status,omitempty"`
	StartDate                 *time.Time      `json:"startdate,omitempty"`
	EndDate                   *time.Time      `json:"enddate,omitempty"`
	NextPaymentDate           *time.Time      `json:"next_payment_date,omitempty"`
	BillingAmount             decimal.Decimal `json:"billing_amount"`
	CycleNumber               int             `json:"cycle_number"`
	CyclePeriod               CyclePeriod     `json:"cycle_period"`
	BillingLimit              int             `json:"billing_limit"`
	TrialAmount               decimal.Decimal `json:"trial_amount"`
	TrialLimit                int             `json:"trial_limit"`
}

type Service interface {
	Load(ctx context.Context, id int64) (*Subscription, error)
	List(ctx context.Context, args ListArgs) ([]*Subscription, error)
	Get(ctx context.Context, args ListArgs) (*Subscription, error)
	ListForUser(ctx context.Context, userID int64, levelIDs []int64, statuses []Status) ([]*Subscription, error)
	FindByTransaction(ctx context.Context, transactionID, gateway, environment string) (*Subscription, error)

	Create(ctx context.Context, req CreateRequest) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) (bool, error)
	Save(ctx context.Context, subscription *Subscription) (int64, error)
	Cancel(ctx context.Context, subscription *Subscription) (bool, error)

	StartDate(subscription *Subscription, format string, local bool) (string, bool)
	EndDate(subscription *Subscription, format string, local bool) (string, bool)
	NextPaymentDate(subscription *Subscription, format string, local bool) (string, bool)
	InitialPayment(ctx context.Context, subscription *Subscription) (decimal.Decimal, error)

	HandleRecurringPaymentCompleted(ctx context.Context, order OrderRef) error
}
