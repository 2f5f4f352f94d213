package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// TestJWTSecret signs tokens minted by MintToken
const TestJWTSecret = "test-jwt-secret"

// MintToken signs a token for user the way the identity provider would
func MintToken(t *testing.T, user *models.User) string {
	t.Helper()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   user.IsAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// CreateUser inserts a user with the given username
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateIngredient inserts an ingredient
func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("failed to create ingredient: %v", err)
	}
	return ing
}

// CreateTag inserts a tag whose slug equals its name
func CreateTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: name}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag
}

// CreateRecipe inserts a recipe with the given ingredient amounts and tags
// directly, bypassing validation
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, amounts map[*models.Ingredient]int, tags ...*models.Tag) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		Name:        name,
		Text:        name + " instructions",
		Image:       "recipes/images/" + name + ".png",
		CookingTime: 10,
		AuthorID:    author.ID,
	}
	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe: %v", err)
	}
	for ing, amount := range amounts {
		row := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ing.ID, Amount: amount}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to create recipe ingredient: %v", err)
		}
	}
	for _, tag := range tags {
		row := models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to create recipe tag: %v", err)
		}
	}
	return recipe
}

// AddToCart puts recipe in user's shopping cart
func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	if err := db.Create(&models.ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("failed to add to cart: %v", err)
	}
}

// AddFavorite marks recipe as a favorite of user
func AddFavorite(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	if err := db.Create(&models.Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("failed to add favorite: %v", err)
	}
}
