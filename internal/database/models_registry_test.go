package database

import (
	"testing"

	"recipeshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesRatings(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.Rating); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Rating")
}

func TestAutoMigrateCreatesRatingUniqueness(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"users", "recipes", "recipe_ingredients", "recipe_instructions", "recipe_tags", "recipe_ratings"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Rating{}, "idx_recipe_ratings_recipe_user"))

	require.NoError(t, db.Create(&models.User{Username: "rater", Email: "r@example.com", Password: "x"}).Error)
	require.NoError(t, db.Create(&models.Recipe{Title: "t", Description: "d", PrepTime: 1, CookTime: 1, Servings: 1, Category: models.CategorySoup, UserID: 1}).Error)
	require.NoError(t, db.Create(&models.Rating{RecipeID: 1, UserID: 1, Score: 4}).Error)

	err = db.Create(&models.Rating{RecipeID: 1, UserID: 1, Score: 2}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
