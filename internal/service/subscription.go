package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// SubscriptionService manages which authors a user follows
type SubscriptionService struct {
	db *gorm.DB
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Subscribe makes userID follow authorID and returns the author
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error) {
	if userID == authorID {
		return nil, NewValidationError("author", "cannot subscribe to yourself")
	}

	author, err := s.findUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "already subscribed to this author"}
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("author_id", authorID).Msg("subscribed")
	return author, nil
}

// Unsubscribe removes the subscription. A missing subscription is a ConflictError.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if _, err := s.findUser(ctx, authorID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ConflictError{Message: "not subscribed to this author"}
	}
	return nil
}

// ListSubscriptions returns one page of the authors userID follows, each
// with their recipe count and up to recipesLimit of their newest recipes.
// A negative recipesLimit means no limit.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID uint, page, limit, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	filter := types.RecipeFilter{Page: page, Limit: limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := query.Order("subscriptions.id").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out, err := s.Describe(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Describe renders followed authors with recipe previews. It issues two
// queries for the whole set.
func (s *SubscriptionService) Describe(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	out := make([]types.SubscriptionResponse, 0, len(authors))
	if len(authors) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Total
	}

	recipesByAuthor := make(map[uint][]types.ShortRecipe, len(authors))
	if recipesLimit != 0 {
		recipes, err := s.previewRecipes(ctx, ids, recipesLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list author recipes: %w", err)
		}
		for i := range recipes {
			r := &recipes[i]
			recipesByAuthor[r.AuthorID] = append(recipesByAuthor[r.AuthorID], ShortRecipe(r))
		}
	}

	for i := range authors {
		a := &authors[i]
		recipes := recipesByAuthor[a.ID]
		if recipes == nil {
			recipes = []types.ShortRecipe{}
		}
		out = append(out, types.SubscriptionResponse{
			UserResponse: renderUser(a, true),
			Recipes:      recipes,
			RecipesCount: countByAuthor[a.ID],
		})
	}
	return out, nil
}

// previewRecipes loads the newest recipes of each author, newest first.
// With a positive limit only that many rows per author leave the store.
func (s *SubscriptionService) previewRecipes(ctx context.Context, authorIDs []uint, limit int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if limit < 0 {
		err := s.db.WithContext(ctx).
			Where("author_id IN ?", authorIDs).
			Order("created_at DESC, id DESC").
			Find(&recipes).Error
		return recipes, err
	}

	ranked := s.db.Model(&models.Recipe{}).
		Select("recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY created_at DESC, id DESC) AS preview_rank").
		Where("author_id IN ?", authorIDs)
	err := s.db.WithContext(ctx).
		Table("(?) AS ranked", ranked).
		Where("preview_rank <= ?", limit).
		Order("created_at DESC, id DESC").
		Find(&recipes).Error
	return recipes, err
}

func (s *SubscriptionService) findUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
