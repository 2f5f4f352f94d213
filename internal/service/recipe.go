package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	defaultPageSize = 6
	maxPageSize     = 100
)

// RecipeService handles recipe operations. Writes run as one transaction:
// the recipe row and all of its ingredient and tag rows are committed
// together or not at all.
type RecipeService struct {
	db        *gorm.DB
	validator *RecipeValidator
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, validator *RecipeValidator) *RecipeService {
	return &RecipeService{
		db:        db,
		validator: validator,
	}
}

// CreateRecipe validates req and stores a new recipe owned by authorID
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		return nil, s.validationFailure(ctx, "create", err)
	}

	recipe := &models.Recipe{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		AuthorID:    authorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return writeAssociations(tx, recipe.ID, req)
	})
	if err != nil {
		return nil, s.writeFailure(ctx, "create", err)
	}

	metrics.RecordRecipeWrite("create", "ok")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", authorID).Msg("recipe created")
	return s.GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe replaces every field and association of the recipe with req.
// Associations absent from req are removed.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		return nil, s.validationFailure(ctx, "update", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":         req.Name,
			"text":         req.Text,
			"image":        req.Image,
			"cooking_time": req.CookingTime,
			"updated_at":   time.Now(),
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update recipe: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRecipeNotFound
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		return writeAssociations(tx, id, req)
	})
	if errors.Is(err, ErrRecipeNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.writeFailure(ctx, "update", err)
	}

	metrics.RecordRecipeWrite("update", "ok")
	logging.Ctx(ctx).Info().Uint("recipe_id", id).Msg("recipe updated")
	return s.GetRecipe(ctx, id)
}

// DeleteRecipe removes the recipe together with its association,
// membership and short link rows
func (s *RecipeService) DeleteRecipe(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCartItem{},
			&models.ShortLink{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete recipe rows: %w", err)
			}
		}

		result := tx.Delete(&models.Recipe{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete recipe: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRecipeNotFound
		}
		return nil
	})
	if errors.Is(err, ErrRecipeNotFound) {
		return err
	}
	if err != nil {
		return s.writeFailure(ctx, "delete", err)
	}

	metrics.RecordRecipeWrite("delete", "ok")
	logging.Ctx(ctx).Info().Uint("recipe_id", id).Msg("recipe deleted")
	return nil
}

// GetRecipe retrieves a recipe by ID with everything the projection needs
func (s *RecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withRecipeDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// ListRecipes returns one page of recipes matching filter, newest first,
// and the total number of matches. Membership filters match nothing for
// anonymous viewers.
func (s *RecipeService) ListRecipes(ctx context.Context, filter types.RecipeFilter, viewer *types.Viewer) ([]models.Recipe, int64, error) {
	if (filter.IsFavorited || filter.IsInShoppingCart) && viewer == nil {
		return []models.Recipe{}, 0, nil
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Recipe{})
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if len(filter.Tags) > 0 {
		tagged := s.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.IsFavorited {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", viewer.UserID))
	}
	if filter.IsInShoppingCart {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", viewer.UserID))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withRecipeDetails(query).
		Order("recipes.created_at DESC, recipes.id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// withRecipeDetails preloads author, ingredient lines and tags. Each
// association costs one query for the whole result set.
func withRecipeDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("RecipeIngredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.id")
		}).
		Preload("RecipeIngredients.Ingredient").
		Preload("RecipeTags", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_tags.id")
		}).
		Preload("RecipeTags.Tag")
}

func writeAssociations(tx *gorm.DB, recipeID uint, req *types.RecipeWriteRequest) error {
	ingredients := make([]models.RecipeIngredient, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		ingredients = append(ingredients, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	if err := tx.Create(&ingredients).Error; err != nil {
		return fmt.Errorf("failed to store recipe ingredients: %w", err)
	}

	tags := make([]models.RecipeTag, 0, len(req.Tags))
	for _, tagID := range req.Tags {
		tags = append(tags, models.RecipeTag{RecipeID: recipeID, TagID: tagID})
	}
	if err := tx.Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to store recipe tags: %w", err)
	}
	return nil
}

func (s *RecipeService) validationFailure(ctx context.Context, op string, err error) error {
	if IsValidation(err) {
		metrics.RecordRecipeWrite(op, "invalid")
		return err
	}
	return s.writeFailure(ctx, op, err)
}

// writeFailure logs the store error and replaces it with ErrOperationFailed
func (s *RecipeService) writeFailure(ctx context.Context, op string, err error) error {
	metrics.RecordRecipeWrite(op, "failed")
	logging.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("recipe write rolled back")
	return ErrOperationFailed
}
