package repository

import (
	"context"
	"fmt"
	"strings"

	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, user_id, membership_level_id, gateway, gateway_environment,
	subscription_transaction_id, startdate, enddate, next_payment_date, billing_amount,
	cycle_number, cycle_period, billing_limit, trial_amount, trial_limit, status`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*subscriptiondomain.Subscription, error) {
	if id <= 0 {
		return nil, nil
	}

	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM membership_subscriptions WHERE id = ? LIMIT 1`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) ListIDs(ctx context.Context, db *gorm.DB, args subscriptiondomain.ListArgs) ([]int64, error) {
	var (
		clauses []string
		params  []any
	)
	for _, filter := range args.Filters() {
		switch len(filter.Values) {
		case 0:
			clauses = append(clauses, "1 = 0")
		case 1:
			clauses = append(clauses, string(filter.Column)+" = ?")
			params = append(params, filter.Values[0])
		default:
			clauses = append(clauses, string(filter.Column)+" IN ?")
			params = append(params, filter.Values)
		}
	}

	var query strings.Builder
	query.WriteString("SELECT id FROM membership_subscriptions")
	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY ")
	query.WriteString(args.ResolvedOrderBy())
	if limit := args.ResolvedLimit(); limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	var ids []int64
	if err := db.WithContext(ctx).Raw(query.String(), params...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	subscription.ID = 0
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) Replace(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	if subscription.ID == 0 {
		return fmt.Errorf("replace subscription: %w", gorm.ErrMissingWhereClause)
	}
	return db.WithContext(ctx).Save(subscription).Error
}
