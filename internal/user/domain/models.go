// Package domain describes the site users referenced by subscriptions.
package domain

import (
	"context"

	"gorm.io/gorm"
)

// User is a read-only view of a site account.
type User struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email       string `gorm:"column:email;type:varchar(255);not null" json:"email"`
	Login       string `gorm:"column:login;type:varchar(64);not null" json:"login"`
	DisplayName string `gorm:"column:display_name;type:varchar(255);not null" json:"display_name"`
}

// TableName sets the database table name.
func (User) TableName() string { return "membership_users" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*User, error)
}
