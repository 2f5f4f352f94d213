package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserService keeps the local user table in step with the identity provider
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureUser creates or refreshes the user row described by claims. It only
// writes when the row is missing or its profile fields changed.
func (s *UserService) EnsureUser(ctx context.Context, claims *types.TokenClaims) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Take(&user, claims.UserID).Error
	if err == nil && !profileChanged(&user, claims) {
		return &user, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = models.User{
		ID:        claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		IsAdmin:   claims.IsAdmin,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "first_name", "last_name", "is_admin", "updated_at"}),
	}).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

func profileChanged(u *models.User, c *types.TokenClaims) bool {
	return u.Username != c.Username ||
		u.Email != c.Email ||
		u.FirstName != c.FirstName ||
		u.LastName != c.LastName ||
		u.IsAdmin != c.IsAdmin
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
