package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

// ReferenceService serves the ingredient and tag catalogues
type ReferenceService struct {
	db *gorm.DB
}

// NewReferenceService creates a new ReferenceService instance
func NewReferenceService(db *gorm.DB) *ReferenceService {
	return &ReferenceService{db: db}
}

// ListIngredients returns ingredients whose name starts with prefix,
// ignoring case. An empty prefix lists everything.
func (s *ReferenceService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name, measurement_unit")
	if prefix != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(prefix))+"%")
	}

	ingredients := []models.Ingredient{}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient retrieves an ingredient by ID
func (s *ReferenceService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}

// ListTags returns all tags
func (s *ReferenceService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// GetTag retrieves a tag by ID
func (s *ReferenceService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// ImportIngredients inserts ingredients, skipping ones already present,
// and returns how many rows were added
func (s *ReferenceService) ImportIngredients(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&ingredients, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import ingredients: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ImportTags inserts tags, skipping ones already present
func (s *ReferenceService) ImportTags(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&tags, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import tags: %w", result.Error)
	}
	return result.RowsAffected, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
