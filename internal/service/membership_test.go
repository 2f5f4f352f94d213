package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestMembershipAddTwiceConflicts(t *testing.T) {
	for _, kind := range []models.MembershipKind{models.FavoriteMembership, models.ShoppingCartMembership} {
		t.Run(kind.String(), func(t *testing.T) {
			db := testhelpers.SetupTestDB(t)
			ctx := context.Background()
			user := testhelpers.CreateUser(t, db, "user")
			recipe := testhelpers.CreateRecipe(t, db, user, "Soup", nil)
			svc := NewMembershipService(db)

			added, err := svc.Add(ctx, kind, user.ID, recipe.ID)
			require.NoError(t, err)
			assert.Equal(t, "Soup", added.Name)

			_, err = svc.Add(ctx, kind, user.ID, recipe.ID)
			assert.True(t, IsConflict(err), "got %v", err)

			var count int64
			require.NoError(t, db.Model(newMembershipRow(kind, 0, 0)).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})
	}
}

func TestMembershipRemove(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "user")
	recipe := testhelpers.CreateRecipe(t, db, user, "Soup", nil)
	svc := NewMembershipService(db)

	err := svc.Remove(ctx, models.FavoriteMembership, user.ID, recipe.ID)
	assert.True(t, IsConflict(err))

	_, err = svc.Add(ctx, models.FavoriteMembership, user.ID, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, models.FavoriteMembership, user.ID, recipe.ID))

	// favorites and cart are independent
	_, err = svc.Add(ctx, models.ShoppingCartMembership, user.ID, recipe.ID)
	require.NoError(t, err)
	assert.True(t, IsConflict(svc.Remove(ctx, models.FavoriteMembership, user.ID, recipe.ID)))
}

func TestMembershipUnknownRecipe(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "user")
	svc := NewMembershipService(db)

	_, err := svc.Add(context.Background(), models.FavoriteMembership, user.ID, 404)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	assert.ErrorIs(t, svc.Remove(context.Background(), models.ShoppingCartMembership, user.ID, 404), ErrRecipeNotFound)
}
