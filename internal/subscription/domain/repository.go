package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Subscription, error)
	// ListIDs selects ids matching args. The ordering clause must already be validated.
	ListIDs(ctx context.Context, db *gorm.DB, args ListArgs) ([]int64, error)
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Replace(ctx context.Context, db *gorm.DB, subscription *Subscription) error
}
