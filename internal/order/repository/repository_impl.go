package repository

import (
	"context"

	orderdomain "github.com/smallbiznis/membership/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() orderdomain.Repository {
	return &repo{}
}

func (r *repo) Earliest(ctx context.Context, db *gorm.DB, key orderdomain.SubscriptionKey) (*orderdomain.Order, error) {
	return r.first(ctx, db, key, "timestamp ASC, id ASC")
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB, key orderdomain.SubscriptionKey) (*orderdomain.Order, error) {
	return r.first(ctx, db, key, "timestamp DESC, id DESC")
}

func (r *repo) first(ctx context.Context, db *gorm.DB, key orderdomain.SubscriptionKey, orderBy string) (*orderdomain.Order, error) {
	if key.TransactionID == "" {
		return nil, nil
	}

	var order orderdomain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, membership_id, subscription_transaction_id, gateway,
		 gateway_environment, total, status, timestamp
		 FROM membership_orders
		 WHERE subscription_transaction_id = ? AND gateway = ? AND gateway_environment = ?
		 ORDER BY `+orderBy+`
		 LIMIT 1`,
		key.TransactionID,
		key.Gateway,
		key.Environment,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}
