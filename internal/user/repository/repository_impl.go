package repository

import (
	"context"

	userdomain "github.com/smallbiznis/membership/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*userdomain.User, error) {
	if id <= 0 {
		return nil, nil
	}

	var user userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, login, display_name FROM membership_users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}
