package types

// RecipeResponse is the full read projection of a recipe
type RecipeResponse struct {
	ID               uint                 `json:"id"`
	Tags             []TagResponse        `json:"tags"`
	Author           UserResponse         `json:"author"`
	Ingredients      []IngredientInRecipe `json:"ingredients"`
	IsFavorited      bool                 `json:"is_favorited"`
	IsInShoppingCart bool                 `json:"is_in_shopping_cart"`
	Name             string               `json:"name"`
	Image            string               `json:"image"`
	Text             string               `json:"text"`
	CookingTime      int                  `json:"cooking_time"`
}

// IngredientInRecipe is an ingredient line inside a recipe projection
type IngredientInRecipe struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// ShortRecipe is the compact recipe form used in membership and
// subscription responses
type ShortRecipe struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// ShoppingListItem is one aggregated line of the shopping list
type ShoppingListItem struct {
	Name        string `json:"name"`
	Unit        string `json:"measurement_unit"`
	TotalAmount int64  `json:"total_amount"`
}
