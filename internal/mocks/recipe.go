package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// MockRecipeService is a mock implementation of the recipe service
type MockRecipeService struct {
	mock.Mock
}

// CreateRecipe mocks the CreateRecipe method
func (m *MockRecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	args := m.Called(ctx, authorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

// UpdateRecipe mocks the UpdateRecipe method
func (m *MockRecipeService) UpdateRecipe(ctx context.Context, id uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

// DeleteRecipe mocks the DeleteRecipe method
func (m *MockRecipeService) DeleteRecipe(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetRecipe mocks the GetRecipe method
func (m *MockRecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

// ListRecipes mocks the ListRecipes method
func (m *MockRecipeService) ListRecipes(ctx context.Context, filter types.RecipeFilter, viewer *types.Viewer) ([]models.Recipe, int64, error) {
	args := m.Called(ctx, filter, viewer)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Recipe), args.Get(1).(int64), args.Error(2)
}

// MockShoppingListService is a mock implementation of the shopping list service
type MockShoppingListService struct {
	mock.Mock
}

// Aggregate mocks the Aggregate method
func (m *MockShoppingListService) Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShoppingListItem), args.Error(1)
}

// Render mocks the Render method
func (m *MockShoppingListService) Render(items []types.ShoppingListItem) []byte {
	args := m.Called(items)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

// MockShortLinkService is a mock implementation of the short link service
type MockShortLinkService struct {
	mock.Mock
}

// GetOrCreateToken mocks the GetOrCreateToken method
func (m *MockShortLinkService) GetOrCreateToken(ctx context.Context, recipeID uint) (string, error) {
	args := m.Called(ctx, recipeID)
	return args.String(0), args.Error(1)
}

// Resolve mocks the Resolve method
func (m *MockShortLinkService) Resolve(ctx context.Context, token string) (uint, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint), args.Error(1)
}

// Forget mocks the Forget method
func (m *MockShortLinkService) Forget(ctx context.Context, recipeID uint) error {
	args := m.Called(ctx, recipeID)
	return args.Error(0)
}
