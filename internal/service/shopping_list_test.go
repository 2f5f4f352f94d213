package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestAggregateSumsAcrossRecipes(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "shopper")
	salt := testhelpers.CreateIngredient(t, db, "Salt", "g")
	butter := testhelpers.CreateIngredient(t, db, "Butter", "g")
	saltPinch := testhelpers.CreateIngredient(t, db, "Salt", "pinch")

	r1 := testhelpers.CreateRecipe(t, db, user, "Bread", map[*models.Ingredient]int{salt: 10, butter: 50})
	r2 := testhelpers.CreateRecipe(t, db, user, "Soup", map[*models.Ingredient]int{salt: 5, saltPinch: 2})
	testhelpers.CreateRecipe(t, db, user, "Not in cart", map[*models.Ingredient]int{salt: 1000})
	testhelpers.AddToCart(t, db, user, r1)
	testhelpers.AddToCart(t, db, user, r2)

	svc := NewShoppingListService(db)
	items, err := svc.Aggregate(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, []types.ShoppingListItem{
		{Name: "Butter", Unit: "g", TotalAmount: 50},
		{Name: "Salt", Unit: "g", TotalAmount: 15},
		{Name: "Salt", Unit: "pinch", TotalAmount: 2},
	}, items)
	assert.Equal(t, "Butter — 50 g\nSalt — 15 g\nSalt — 2 pinch\n", string(svc.Render(items)))
}

func TestAggregateGroupsCaseInsensitively(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "shopper")
	upper := testhelpers.CreateIngredient(t, db, "Salt", "G")
	lower := testhelpers.CreateIngredient(t, db, "salt", "g")

	r1 := testhelpers.CreateRecipe(t, db, user, "A", map[*models.Ingredient]int{upper: 3})
	r2 := testhelpers.CreateRecipe(t, db, user, "B", map[*models.Ingredient]int{lower: 4})
	testhelpers.AddToCart(t, db, user, r1)
	testhelpers.AddToCart(t, db, user, r2)

	items, err := NewShoppingListService(db).Aggregate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].TotalAmount)
}

func TestAggregateEmptyCart(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "shopper")

	svc := NewShoppingListService(db)
	items, err := svc.Aggregate(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, svc.Render(items))
}
