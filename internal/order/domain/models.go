// Package domain describes membership orders as read by the subscription store.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a single billing transaction. Orders are written by the checkout
// and gateway integrations; this service only reads them.
type Order struct {
	ID                        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID                    int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	MembershipID              int64           `gorm:"column:membership_id;not null" json:"membership_id"`
	SubscriptionTransactionID string          `gorm:"column:subscription_transaction_id;type:varchar(128);not null;index:idx_membership_orders_subscription,priority:1" json:"subscription_transaction_id"`
	Gateway                   string          `gorm:"column:gateway;type:varchar(64);not null;index:idx_membership_orders_subscription,priority:2" json:"gateway"`
	GatewayEnvironment        string          `gorm:"column:gateway_environment;type:varchar(64);not null;index:idx_membership_orders_subscription,priority:3" json:"gateway_environment"`
	Total                     decimal.Decimal `gorm:"column:total;type:decimal(18,8);not null" json:"total"`
	Status                    string          `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Timestamp                 time.Time       `gorm:"column:timestamp;not null" json:"timestamp"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "membership_orders" }

// SubscriptionKey is the natural key joining orders to their subscription.
type SubscriptionKey struct {
	TransactionID string
	Gateway       string
	Environment   string
}

type Repository interface {
	// Earliest returns the first order of a subscription by timestamp, then id.
	Earliest(ctx context.Context, db *gorm.DB, key SubscriptionKey) (*Order, error)
	// Latest returns the most recent order of a subscription by timestamp, then id.
	Latest(ctx context.Context, db *gorm.DB, key SubscriptionKey) (*Order, error)
}
