package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// MockTokenService is a mock implementation of the token validator
type MockTokenService struct {
	mock.Mock
}

// ValidateToken mocks the ValidateToken method
func (m *MockTokenService) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

// MockUserService is a mock implementation of the user service
type MockUserService struct {
	mock.Mock
}

// EnsureUser mocks the EnsureUser method
func (m *MockUserService) EnsureUser(ctx context.Context, claims *types.TokenClaims) (*models.User, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// GetUser mocks the GetUser method
func (m *MockUserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
