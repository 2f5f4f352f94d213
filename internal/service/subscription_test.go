package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestSubscribeSelfRejected(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "narcissus")

	_, err := NewSubscriptionService(db).Subscribe(context.Background(), user.ID, user.ID)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"cannot subscribe to yourself"}, verr.Fields["author"])

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()
	fan := testhelpers.CreateUser(t, db, "fan")
	author := testhelpers.CreateUser(t, db, "author")
	svc := NewSubscriptionService(db)

	got, err := svc.Subscribe(ctx, fan.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)

	_, err = svc.Subscribe(ctx, fan.ID, author.ID)
	assert.True(t, IsConflict(err))

	require.NoError(t, svc.Unsubscribe(ctx, fan.ID, author.ID))
	assert.True(t, IsConflict(svc.Unsubscribe(ctx, fan.ID, author.ID)))

	_, err = svc.Subscribe(ctx, fan.ID, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListSubscriptionsLimitsRecipes(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()
	fan := testhelpers.CreateUser(t, db, "fan")
	prolific := testhelpers.CreateUser(t, db, "prolific")
	quiet := testhelpers.CreateUser(t, db, "quiet")
	for i := 0; i < 4; i++ {
		testhelpers.CreateRecipe(t, db, prolific, fmt.Sprintf("Dish %d", i), nil)
	}

	svc := NewSubscriptionService(db)
	_, err := svc.Subscribe(ctx, fan.ID, prolific.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, fan.ID, quiet.ID)
	require.NoError(t, err)

	subs, total, err := svc.ListSubscriptions(ctx, fan.ID, 1, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)

	assert.Equal(t, "prolific", subs[0].Username)
	assert.True(t, subs[0].IsSubscribed)
	assert.Equal(t, int64(4), subs[0].RecipesCount)
	require.Len(t, subs[0].Recipes, 2)
	assert.Equal(t, "Dish 3", subs[0].Recipes[0].Name)

	assert.Equal(t, "quiet", subs[1].Username)
	assert.Zero(t, subs[1].RecipesCount)
	assert.Empty(t, subs[1].Recipes)
}

func TestDescribeLoadsOnlyPreviewRows(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()
	first := testhelpers.CreateUser(t, db, "first")
	second := testhelpers.CreateUser(t, db, "second")
	var newest []*models.Recipe
	for i := 0; i < 5; i++ {
		testhelpers.CreateRecipe(t, db, first, fmt.Sprintf("First %d", i), nil)
		newest = append(newest, testhelpers.CreateRecipe(t, db, second, fmt.Sprintf("Second %d", i), nil))
	}

	// Record how many rows each SELECT hands back
	var maxRows int64
	name := "test:max_rows_" + t.Name()
	require.NoError(t, db.Callback().Query().After("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.RowsAffected > maxRows {
			maxRows = tx.Statement.RowsAffected
		}
	}))

	out, err := NewSubscriptionService(db).Describe(ctx, []models.User{*first, *second}, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(5), out[1].RecipesCount)
	require.Len(t, out[1].Recipes, 2)
	assert.Equal(t, newest[4].ID, out[1].Recipes[0].ID)
	assert.Equal(t, newest[3].ID, out[1].Recipes[1].ID)
	assert.Len(t, out[0].Recipes, 2)

	// Two authors with two previews each
	assert.LessOrEqual(t, maxRows, int64(4))
}

func TestListSubscriptionsCapsPageSize(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	fan := testhelpers.CreateUser(t, db, "fan")
	for i := 0; i < maxPageSize+1; i++ {
		author := testhelpers.CreateUser(t, db, fmt.Sprintf("author%03d", i))
		require.NoError(t, db.Create(&models.Subscription{UserID: fan.ID, AuthorID: author.ID}).Error)
	}

	out, total, err := NewSubscriptionService(db).ListSubscriptions(context.Background(), fan.ID, 1, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(maxPageSize+1), total)
	assert.Len(t, out, maxPageSize)
}
