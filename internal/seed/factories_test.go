package seed

import (
	"testing"

	"recipeshare/internal/models"
	"recipeshare/internal/service"
	"recipeshare/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_UserIsValid(t *testing.T) {
	f := NewFactory(42)
	for i := 0; i < 20; i++ {
		u := f.User()
		err := validation.Struct(service.RegisterInput{Username: u.Username, Email: u.Email, Password: u.Password})
		require.NoError(t, err, u.Username)
	}
}

func TestFactory_RecipeIsValid(t *testing.T) {
	f := NewFactory(7)
	for i := 0; i < 20; i++ {
		in := f.Recipe()
		require.NoError(t, validation.Struct(in), in.Title)
		assert.NotEmpty(t, in.Ingredients)
		assert.NotEmpty(t, in.Instructions)
	}
}

func TestFactory_Deterministic(t *testing.T) {
	a, b := NewFactory(99), NewFactory(99)
	assert.Equal(t, a.Recipe(), b.Recipe())
}

func TestFactory_Raters(t *testing.T) {
	f := NewFactory(3)
	pool := []*models.User{{ID: 1}, {ID: 2}, {ID: 3}}

	picked := f.Raters(pool, 2)
	require.Len(t, picked, 2)
	assert.NotEqual(t, picked[0].ID, picked[1].ID)

	assert.Len(t, f.Raters(pool, 10), 3)
	assert.Empty(t, f.Raters(pool, 0))
}

func TestFactory_RatingInRange(t *testing.T) {
	f := NewFactory(11)
	for i := 0; i < 50; i++ {
		score, _ := f.Rating()
		assert.GreaterOrEqual(t, score, models.MinRatingScore)
		assert.LessOrEqual(t, score, models.MaxRatingScore)
	}
}
