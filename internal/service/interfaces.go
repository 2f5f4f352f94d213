package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, id uint, req *types.RecipeWriteRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id uint) error
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	ListRecipes(ctx context.Context, filter types.RecipeFilter, viewer *types.Viewer) ([]models.Recipe, int64, error)
}

// IProjectionBuilder defines the interface for rendering read models
type IProjectionBuilder interface {
	Render(ctx context.Context, recipes []models.Recipe, viewer *types.Viewer) ([]types.RecipeResponse, error)
	RenderOne(ctx context.Context, recipe *models.Recipe, viewer *types.Viewer) (types.RecipeResponse, error)
	RenderUser(ctx context.Context, user *models.User, viewer *types.Viewer) (types.UserResponse, error)
}

// IMembershipService defines the interface for favorites and shopping cart operations
type IMembershipService interface {
	Add(ctx context.Context, kind models.MembershipKind, userID, recipeID uint) (*models.Recipe, error)
	Remove(ctx context.Context, kind models.MembershipKind, userID, recipeID uint) error
}

// IShoppingListService defines the interface for shopping list aggregation
type IShoppingListService interface {
	Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
	Render(items []types.ShoppingListItem) []byte
}

// IShortLinkService defines the interface for short link operations
type IShortLinkService interface {
	GetOrCreateToken(ctx context.Context, recipeID uint) (string, error)
	Resolve(ctx context.Context, token string) (uint, error)
	Forget(ctx context.Context, recipeID uint) error
}

// ISubscriptionService defines the interface for subscription operations
type ISubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	ListSubscriptions(ctx context.Context, userID uint, page, limit, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
	Describe(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error)
}

// IReferenceService defines the interface for ingredient and tag lookups
type IReferenceService interface {
	ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
}

// IUserService defines the interface for user operations
type IUserService interface {
	EnsureUser(ctx context.Context, claims *types.TokenClaims) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

var (
	_ IRecipeService       = (*RecipeService)(nil)
	_ IProjectionBuilder   = (*ProjectionBuilder)(nil)
	_ IMembershipService   = (*MembershipService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
	_ IShortLinkService    = (*ShortLinkService)(nil)
	_ ISubscriptionService = (*SubscriptionService)(nil)
	_ IReferenceService    = (*ReferenceService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ Authorizer           = AuthorOrAdmin{}
)
