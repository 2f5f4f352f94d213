package types

// RecipeWriteRequest is the payload for creating or replacing a recipe.
// PATCH uses the same payload and replaces every field.
type RecipeWriteRequest struct {
	Name        string             `json:"name" validate:"required,max=256"`
	Text        string             `json:"text" validate:"required"`
	Image       string             `json:"image" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"gte=1"`
	Tags        []uint             `json:"tags" validate:"required,min=1,dive,gt=0"`
	Ingredients []IngredientAmount `json:"ingredients" validate:"required,min=1,dive"`
}

// IngredientAmount is one ingredient line of a recipe write
type IngredientAmount struct {
	ID     uint `json:"id" validate:"gt=0"`
	Amount int  `json:"amount" validate:"gte=1,lte=32767"`
}

// RecipeFilter narrows a recipe listing
type RecipeFilter struct {
	AuthorID         *uint
	Tags             []string
	IsFavorited      bool
	IsInShoppingCart bool
	Page             int
	Limit            int
}

// Offset returns the row offset of the requested page
func (f RecipeFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
