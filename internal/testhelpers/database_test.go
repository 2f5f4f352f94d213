package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
)

func TestSetupTestDBIsolated(t *testing.T) {
	first := SetupTestDB(t)
	second := SetupTestDB(t)

	CreateUser(t, first, "alice")

	var count int64
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCountQueries(t *testing.T) {
	db := SetupTestDB(t)
	counter := CountQueries(t, db)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.NoError(t, db.Find(&users).Error)
	assert.Equal(t, int64(2), counter.Count())

	counter.Reset()
	assert.Zero(t, counter.Count())
}
