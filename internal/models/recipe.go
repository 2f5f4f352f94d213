package models

import "time"

// MaxIngredientAmount is the largest amount a recipe line may carry
const MaxIngredientAmount = 32767

// Recipe is an authored recipe together with its association rows
type Recipe struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:256;not null" json:"name"`
	Text        string `gorm:"type:text;not null" json:"text"`
	Image       string `gorm:"not null" json:"image"`
	CookingTime int    `gorm:"not null;check:chk_recipes_cooking_time,cooking_time > 0" json:"cooking_time"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Author      *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`

	RecipeIngredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RecipeTags        []RecipeTag        `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipeIngredient links a recipe to an ingredient with an amount
type RecipeIngredient struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RecipeID     uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index" json:"ingredient_id"`
	Ingredient   *Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredient,omitempty"`
	Amount       int         `gorm:"not null;check:chk_recipe_ingredients_amount,amount > 0 AND amount <= 32767" json:"amount"`
}

// RecipeTag links a recipe to a tag
type RecipeTag struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	RecipeID uint `gorm:"not null;uniqueIndex:idx_recipe_tag" json:"recipe_id"`
	TagID    uint `gorm:"not null;uniqueIndex:idx_recipe_tag;index" json:"tag_id"`
	Tag      *Tag `gorm:"constraint:OnDelete:CASCADE" json:"tag,omitempty"`
}

// ShortLink maps a recipe to its public short token. Each recipe has at most one.
type ShortLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex" json:"recipe_id"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"size:8;not null;uniqueIndex" json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
