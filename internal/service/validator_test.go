package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func validRequest(tagIDs []uint, ingredients ...types.IngredientAmount) *types.RecipeWriteRequest {
	return &types.RecipeWriteRequest{
		Name:        "Omelette",
		Text:        "Whisk and fry",
		Image:       "recipes/images/omelette.png",
		CookingTime: 5,
		Tags:        tagIDs,
		Ingredients: ingredients,
	}
}

func TestRecipeValidatorAcceptsValidPayload(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	egg := testhelpers.CreateIngredient(t, db, "Egg", "pcs")
	tag := testhelpers.CreateTag(t, db, "breakfast")

	v := NewRecipeValidator(db)
	err := v.Validate(context.Background(), validRequest([]uint{tag.ID}, types.IngredientAmount{ID: egg.ID, Amount: 2}))
	assert.NoError(t, err)
}

func TestRecipeValidatorReportsSortedDuplicates(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	t1 := testhelpers.CreateTag(t, db, "one")
	t2 := testhelpers.CreateTag(t, db, "two")
	t3 := testhelpers.CreateTag(t, db, "three")
	egg := testhelpers.CreateIngredient(t, db, "Egg", "pcs")

	v := NewRecipeValidator(db)
	req := validRequest([]uint{t3.ID, t1.ID, t2.ID, t1.ID, t3.ID, t3.ID}, types.IngredientAmount{ID: egg.ID, Amount: 1})
	err := v.Validate(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"ids 1, 3 duplicated"}, verr.Fields["tags"])
	assert.NotContains(t, verr.Fields, "ingredients")
}

func TestRecipeValidatorReportsMissingIDs(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tag := testhelpers.CreateTag(t, db, "dinner")

	v := NewRecipeValidator(db)
	req := validRequest([]uint{tag.ID}, types.IngredientAmount{ID: 999, Amount: 10})
	err := v.Validate(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"ids 999 do not exist"}, verr.Fields["ingredients"])
}

func TestRecipeValidatorAccumulatesAllErrors(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	salt := testhelpers.CreateIngredient(t, db, "Salt", "g")

	v := NewRecipeValidator(db)
	req := &types.RecipeWriteRequest{
		Name:        "",
		Text:        "text",
		Image:       "",
		CookingTime: 0,
		Tags:        []uint{42},
		Ingredients: []types.IngredientAmount{
			{ID: salt.ID, Amount: 0},
			{ID: salt.ID, Amount: 5},
		},
	}
	err := v.Validate(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "image")
	assert.Contains(t, verr.Fields, "cooking_time")
	assert.Equal(t, []string{"ids 42 do not exist"}, verr.Fields["tags"])
	assert.Contains(t, verr.Fields["ingredients"], "ingredients[0].amount: ensure this value is greater than or equal to 1")
	assert.Contains(t, verr.Fields["ingredients"], "ids 1 duplicated")
}

func TestRecipeValidatorRequiresLists(t *testing.T) {
	db := testhelpers.SetupTestDB(t)

	v := NewRecipeValidator(db)
	err := v.Validate(context.Background(), &types.RecipeWriteRequest{
		Name: "x", Text: "y", Image: "z", CookingTime: 1, Tags: []uint{},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"ensure this field has at least 1 items"}, verr.Fields["tags"])
	assert.Equal(t, []string{"this field is required"}, verr.Fields["ingredients"])
}

func TestDuplicateIDs(t *testing.T) {
	assert.Equal(t, []uint{1, 3}, duplicateIDs([]uint{3, 1, 2, 1, 3, 3}))
	assert.Empty(t, duplicateIDs([]uint{1, 2, 3}))
	assert.Equal(t, []uint{1, 2}, uniquePositive([]uint{2, 0, 1, 2}))
}
