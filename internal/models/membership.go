package models

import "time"

// MembershipKind selects one of the per-user recipe lists
type MembershipKind int

const (
	FavoriteMembership MembershipKind = iota
	ShoppingCartMembership
)

func (k MembershipKind) String() string {
	switch k {
	case FavoriteMembership:
		return "favorite"
	case ShoppingCartMembership:
		return "shopping_cart"
	default:
		return "unknown"
	}
}

// Favorite marks a recipe as favorited by a user
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index" json:"recipe_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ShoppingCartItem puts a recipe in a user's shopping cart
type ShoppingCartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index" json:"recipe_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeTag{},
		&Favorite{},
		&ShoppingCartItem{},
		&Subscription{},
		&ShortLink{},
	}
}
