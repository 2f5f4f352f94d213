package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/types"
)

// Ingredients are grouped by case-insensitive name and unit, so "Salt g"
// and "salt G" sum into one line. The displayed spelling is the smallest
// one in the group.
const shoppingListQuery = `
SELECT MIN(i.name) AS name,
       MIN(i.measurement_unit) AS unit,
       SUM(ri.amount) AS total_amount
FROM recipe_ingredients ri
JOIN ingredients i ON i.id = ri.ingredient_id
JOIN shopping_cart_items sc ON sc.recipe_id = ri.recipe_id
WHERE sc.user_id = ?
GROUP BY LOWER(i.name), LOWER(i.measurement_unit)
ORDER BY LOWER(MIN(i.name)), LOWER(MIN(i.measurement_unit))`

// ShoppingListService aggregates the ingredients of every recipe in a
// user's shopping cart
type ShoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new ShoppingListService instance
func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Aggregate returns the summed ingredient lines for the user's cart sorted
// by name. An empty cart yields an empty list.
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	items := []types.ShoppingListItem{}
	if err := s.db.WithContext(ctx).Raw(shoppingListQuery, userID).Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// Render formats items as the downloadable text file, one line per item
func (s *ShoppingListService) Render(items []types.ShoppingListItem) []byte {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s — %d %s\n", item.Name, item.TotalAmount, item.Unit)
	}
	return []byte(b.String())
}
