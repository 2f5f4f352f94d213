package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recipeFixture struct {
	db      *gorm.DB
	svc     *RecipeService
	author  *models.User
	tags    []*models.Tag
	ingreds []*models.Ingredient
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	db := testhelpers.SetupTestDB(t)
	f := &recipeFixture{
		db:     db,
		svc:    NewRecipeService(db, NewRecipeValidator(db)),
		author: testhelpers.CreateUser(t, db, "chef"),
	}
	for _, name := range []string{"breakfast", "lunch", "dinner", "dessert"} {
		f.tags = append(f.tags, testhelpers.CreateTag(t, db, name))
	}
	for _, name := range []string{"Egg", "Milk", "Flour", "Sugar"} {
		f.ingreds = append(f.ingreds, testhelpers.CreateIngredient(t, db, name, "g"))
	}
	return f
}

func ingredientIDs(r *models.Recipe) []uint {
	ids := make([]uint, 0, len(r.RecipeIngredients))
	for _, ri := range r.RecipeIngredients {
		ids = append(ids, ri.IngredientID)
	}
	return ids
}

func tagIDs(r *models.Recipe) []uint {
	ids := make([]uint, 0, len(r.RecipeTags))
	for _, rt := range r.RecipeTags {
		ids = append(ids, rt.TagID)
	}
	return ids
}

func TestCreateRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	req := validRequest([]uint{f.tags[0].ID, f.tags[1].ID},
		types.IngredientAmount{ID: f.ingreds[0].ID, Amount: 2},
		types.IngredientAmount{ID: f.ingreds[1].ID, Amount: 200},
	)

	recipe, err := f.svc.CreateRecipe(context.Background(), f.author.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "Omelette", recipe.Name)
	assert.Equal(t, f.author.ID, recipe.AuthorID)
	require.NotNil(t, recipe.Author)
	assert.Equal(t, "chef", recipe.Author.Username)
	assert.Equal(t, []uint{f.ingreds[0].ID, f.ingreds[1].ID}, ingredientIDs(recipe))
	assert.Equal(t, []uint{f.tags[0].ID, f.tags[1].ID}, tagIDs(recipe))
	require.NotNil(t, recipe.RecipeIngredients[1].Ingredient)
	assert.Equal(t, "Milk", recipe.RecipeIngredients[1].Ingredient.Name)
	assert.Equal(t, 200, recipe.RecipeIngredients[1].Amount)
}

func TestCreateRecipeInvalidWritesNothing(t *testing.T) {
	f := newRecipeFixture(t)
	req := validRequest([]uint{f.tags[0].ID}, types.IngredientAmount{ID: 999, Amount: 1})

	_, err := f.svc.CreateRecipe(context.Background(), f.author.ID, req)
	assert.True(t, IsValidation(err))

	var count int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateRecipeReplacesAssociations(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, f.author.ID, validRequest(
		[]uint{f.tags[0].ID, f.tags[1].ID},
		types.IngredientAmount{ID: f.ingreds[0].ID, Amount: 1},
		types.IngredientAmount{ID: f.ingreds[1].ID, Amount: 2},
	))
	require.NoError(t, err)

	req := validRequest(
		[]uint{f.tags[2].ID, f.tags[3].ID},
		types.IngredientAmount{ID: f.ingreds[2].ID, Amount: 3},
		types.IngredientAmount{ID: f.ingreds[3].ID, Amount: 4},
	)
	req.Name = "Pancakes"
	updated, err := f.svc.UpdateRecipe(ctx, created.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", updated.Name)
	assert.Equal(t, []uint{f.ingreds[2].ID, f.ingreds[3].ID}, ingredientIDs(updated))
	assert.Equal(t, []uint{f.tags[2].ID, f.tags[3].ID}, tagIDs(updated))

	var rows int64
	require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestUpdateRecipeRollsBackOnStoreFailure(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRecipe(ctx, f.author.ID, validRequest(
		[]uint{f.tags[0].ID},
		types.IngredientAmount{ID: f.ingreds[0].ID, Amount: 1},
	))
	require.NoError(t, err)

	// Fail the ingredient insert after the old rows were deleted
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_ingredients", func(tx *gorm.DB) {
		if tx.Statement.Table == "recipe_ingredients" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	req := validRequest([]uint{f.tags[1].ID}, types.IngredientAmount{ID: f.ingreds[1].ID, Amount: 9})
	req.Name = "Changed"
	_, err = f.svc.UpdateRecipe(ctx, created.ID, req)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.NotContains(t, err.Error(), "disk full")

	require.NoError(t, f.db.Callback().Create().Remove("test:fail_ingredients"))
	reloaded, err := f.svc.GetRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Omelette", reloaded.Name)
	assert.Equal(t, []uint{f.ingreds[0].ID}, ingredientIDs(reloaded))
	assert.Equal(t, []uint{f.tags[0].ID}, tagIDs(reloaded))
}

func TestCreateRecipeRollsBackOnStoreFailure(t *testing.T) {
	f := newRecipeFixture(t)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_tags", func(tx *gorm.DB) {
		if tx.Statement.Table == "recipe_tags" {
			_ = tx.AddError(errors.New("constraint exploded"))
		}
	}))

	_, err := f.svc.CreateRecipe(context.Background(), f.author.ID, validRequest(
		[]uint{f.tags[0].ID},
		types.IngredientAmount{ID: f.ingreds[0].ID, Amount: 1},
	))
	assert.ErrorIs(t, err, ErrOperationFailed)

	var recipes, lines int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&recipes).Error)
	require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Count(&lines).Error)
	assert.Zero(t, recipes)
	assert.Zero(t, lines)
}

func TestUpdateRecipeNotFound(t *testing.T) {
	f := newRecipeFixture(t)
	_, err := f.svc.UpdateRecipe(context.Background(), 12345, validRequest(
		[]uint{f.tags[0].ID},
		types.IngredientAmount{ID: f.ingreds[0].ID, Amount: 1},
	))
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestDeleteRecipeRemovesDependentRows(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	reader := testhelpers.CreateUser(t, f.db, "reader")

	recipe := testhelpers.CreateRecipe(t, f.db, f.author, "Soup", map[*models.Ingredient]int{f.ingreds[0]: 1}, f.tags[0])
	testhelpers.AddFavorite(t, f.db, reader, recipe)
	testhelpers.AddToCart(t, f.db, reader, recipe)
	_, err := NewShortLinkService(f.db, nil).GetOrCreateToken(ctx, recipe.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecipe(ctx, recipe.ID))

	for _, model := range []interface{}{&models.Recipe{}, &models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{}, &models.ShoppingCartItem{}, &models.ShortLink{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}

	assert.ErrorIs(t, f.svc.DeleteRecipe(ctx, recipe.ID), ErrRecipeNotFound)
}

func TestListRecipesFilters(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	other := testhelpers.CreateUser(t, f.db, "other")

	soup := testhelpers.CreateRecipe(t, f.db, f.author, "Soup", map[*models.Ingredient]int{f.ingreds[0]: 1}, f.tags[1])
	cake := testhelpers.CreateRecipe(t, f.db, f.author, "Cake", map[*models.Ingredient]int{f.ingreds[3]: 100}, f.tags[3])
	testhelpers.CreateRecipe(t, f.db, other, "Toast", map[*models.Ingredient]int{f.ingreds[2]: 50}, f.tags[0], f.tags[3])
	testhelpers.AddFavorite(t, f.db, other, soup)
	testhelpers.AddToCart(t, f.db, other, cake)

	names := func(recipes []models.Recipe) []string {
		out := make([]string, 0, len(recipes))
		for _, r := range recipes {
			out = append(out, r.Name)
		}
		return out
	}

	all, total, err := f.svc.ListRecipes(ctx, types.RecipeFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"Toast", "Cake", "Soup"}, names(all))

	byAuthor, _, err := f.svc.ListRecipes(ctx, types.RecipeFilter{AuthorID: &other.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Toast"}, names(byAuthor))

	byTag, total, err := f.svc.ListRecipes(ctx, types.RecipeFilter{Tags: []string{"dessert"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.ElementsMatch(t, []string{"Cake", "Toast"}, names(byTag))

	viewer := &types.Viewer{UserID: other.ID}
	favs, _, err := f.svc.ListRecipes(ctx, types.RecipeFilter{IsFavorited: true}, viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{"Soup"}, names(favs))

	cart, _, err := f.svc.ListRecipes(ctx, types.RecipeFilter{IsInShoppingCart: true}, viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cake"}, names(cart))

	anon, total, err := f.svc.ListRecipes(ctx, types.RecipeFilter{IsFavorited: true}, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, anon)

	page2, total, err := f.svc.ListRecipes(ctx, types.RecipeFilter{Page: 2, Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"Soup"}, names(page2))
}
