package repository

import (
	"testing"

	"recipeshare/internal/models"
	"recipeshare/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hashed"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func newRecipe(authorID uint, title string, tags ...string) *models.Recipe {
	r := &models.Recipe{
		Title:       title,
		Description: title + " description",
		PrepTime:    10,
		CookTime:    15,
		Servings:    4,
		Difficulty:  models.DifficultyEasy,
		Category:    models.CategoryMainCourse,
		UserID:      authorID,
	}
	r.SetIngredients([]models.Ingredient{
		{Name: "Flour", Amount: "2", Unit: "cups"},
		{Name: "Salt", Amount: "1", Unit: "pinch"},
	})
	r.SetInstructions([]models.Instruction{{Instruction: "Mix"}, {Instruction: "Bake"}})
	r.SetTags(tags)
	return r
}
