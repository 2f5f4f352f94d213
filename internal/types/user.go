package types

// UserResponse is the public projection of a user
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// SubscriptionResponse is a followed author with a preview of their recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []ShortRecipe `json:"recipes"`
	RecipesCount int64         `json:"recipes_count"`
}
