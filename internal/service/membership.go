package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

// MembershipService manages favorites and shopping cart entries. Both are
// (user, recipe) sets backed by a unique index, so they share one
// implementation selected by MembershipKind.
type MembershipService struct {
	db *gorm.DB
}

// NewMembershipService creates a new MembershipService instance
func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// Add puts the recipe in the user's list. Adding twice is a ConflictError;
// the unique index decides, so concurrent adds cannot both succeed.
func (s *MembershipService) Add(ctx context.Context, kind models.MembershipKind, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(newMembershipRow(kind, userID, recipeID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.MembershipConflicts.WithLabelValues(kind.String(), "add").Inc()
			return nil, &ConflictError{Message: fmt.Sprintf("recipe is already in %s", membershipLabel(kind))}
		}
		return nil, fmt.Errorf("failed to add recipe to %s: %w", kind, err)
	}

	logging.Ctx(ctx).Debug().Str("kind", kind.String()).Uint("user_id", userID).Uint("recipe_id", recipeID).Msg("membership added")
	return recipe, nil
}

// Remove takes the recipe out of the user's list. Removing an absent entry
// is a ConflictError.
func (s *MembershipService) Remove(ctx context.Context, kind models.MembershipKind, userID, recipeID uint) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(newMembershipRow(kind, 0, 0))
	if result.Error != nil {
		return fmt.Errorf("failed to remove recipe from %s: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.MembershipConflicts.WithLabelValues(kind.String(), "remove").Inc()
		return &ConflictError{Message: fmt.Sprintf("recipe is not in %s", membershipLabel(kind))}
	}
	return nil
}

func (s *MembershipService) findRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

func newMembershipRow(kind models.MembershipKind, userID, recipeID uint) interface{} {
	switch kind {
	case models.ShoppingCartMembership:
		return &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
	default:
		return &models.Favorite{UserID: userID, RecipeID: recipeID}
	}
}

func membershipLabel(kind models.MembershipKind) string {
	if kind == models.ShoppingCartMembership {
		return "the shopping cart"
	}
	return "favorites"
}
