package server

import (
	"fmt"
	"net/http"
	"testing"

	"recipeshare/internal/cache"
	"recipeshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeLifecycle(t *testing.T) {
	e := newTestEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, _ := e.register(t, "bob")

	status, body := e.do(t, http.MethodPost, "/api/recipes", alice, recipePayload("  Garlic Pasta ", "Vegetarian", "quick"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Recipe created successfully", body["message"])

	recipe := body["recipe"].(map[string]any)
	id := uint(recipe["id"].(float64))
	assert.Equal(t, "Garlic Pasta", recipe["title"])
	assert.Equal(t, float64(25), recipe["totalTime"])
	assert.Equal(t, "Medium", recipe["difficulty"])
	assert.Equal(t, float64(aliceID), recipe["authorId"])
	assert.Equal(t, []any{"Vegetarian", "quick"}, recipe["tags"])
	assert.Equal(t, float64(0), recipe["averageRating"])
	assert.Equal(t, float64(0), recipe["ratingCount"])

	steps := recipe["instructions"].([]any)
	require.Len(t, steps, 2)
	assert.Equal(t, float64(2), steps[1].(map[string]any)["stepNumber"])

	status, body = e.do(t, http.MethodGet, recipePath(id, ""), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Garlic Pasta", body["recipe"].(map[string]any)["title"])

	t.Run("non-author update is forbidden", func(t *testing.T) {
		status, body := e.do(t, http.MethodPut, recipePath(id, ""), bob, fiber.Map{"title": "Stolen"})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "FORBIDDEN", body["code"])
	})

	t.Run("non-author delete is forbidden", func(t *testing.T) {
		status, body := e.do(t, http.MethodDelete, recipePath(id, ""), bob, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "FORBIDDEN", body["code"])
	})

	t.Run("author update", func(t *testing.T) {
		status, body := e.do(t, http.MethodPut, recipePath(id, ""), alice, fiber.Map{"title": "Garlic Spaghetti", "cookTime": 20})
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "Recipe updated successfully", body["message"])

		updated := body["recipe"].(map[string]any)
		assert.Equal(t, "Garlic Spaghetti", updated["title"])
		assert.Equal(t, float64(30), updated["totalTime"])
		assert.Equal(t, "A quick weeknight dinner", updated["description"])
	})

	t.Run("author update is validated", func(t *testing.T) {
		status, body := e.do(t, http.MethodPut, recipePath(id, ""), alice, fiber.Map{"servings": 0, "category": "Snack"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Validation failed", body["message"])
		assert.Len(t, body["errors"], 2)
	})

	t.Run("author delete", func(t *testing.T) {
		status, body := e.do(t, http.MethodDelete, recipePath(id, ""), alice, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Recipe deleted successfully", body["message"])

		status, body = e.do(t, http.MethodGet, recipePath(id, ""), "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Recipe not found", body["message"])

		status, _ = e.do(t, http.MethodDelete, recipePath(id, ""), alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestRateRecipe_Aggregates(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.register(t, "alice")
	bob, _ := e.register(t, "bob")
	carol, _ := e.register(t, "carol")
	id := e.createRecipe(t, alice, "Tomato Soup")

	rate := func(token string, body fiber.Map) map[string]any {
		t.Helper()
		status, resp := e.do(t, http.MethodPost, recipePath(id, "/rating"), token, body)
		require.Equal(t, http.StatusOK, status, resp)
		assert.Equal(t, "Rating added successfully", resp["message"])
		return resp["recipe"].(map[string]any)
	}

	recipe := rate(bob, fiber.Map{"rating": 4, "comment": "Cosy"})
	assert.Equal(t, 4.0, recipe["averageRating"])
	assert.Equal(t, float64(1), recipe["ratingCount"])

	recipe = rate(bob, fiber.Map{"rating": 2})
	assert.Equal(t, 2.0, recipe["averageRating"])
	assert.Equal(t, float64(1), recipe["ratingCount"])
	ratings := recipe["ratings"].([]any)
	require.Len(t, ratings, 1)
	assert.Equal(t, "Cosy", ratings[0].(map[string]any)["comment"], "re-rating without a comment keeps the old one")

	recipe = rate(carol, fiber.Map{"rating": 5})
	assert.Equal(t, 3.5, recipe["averageRating"])
	assert.Equal(t, float64(2), recipe["ratingCount"])

	recipe = rate(alice, fiber.Map{"rating": 5})
	assert.Equal(t, 4.0, recipe["averageRating"])
	assert.Equal(t, float64(3), recipe["ratingCount"])

	status, body := e.do(t, http.MethodGet, recipePath(id, ""), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4.0, body["recipe"].(map[string]any)["averageRating"])
}

func TestRateRecipe_Rejections(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.register(t, "alice")
	id := e.createRecipe(t, alice, "Tomato Soup")

	tests := []struct {
		name       string
		path       string
		token      string
		body       fiber.Map
		wantStatus int
		wantCode   string
	}{
		{"anonymous", recipePath(id, "/rating"), "", fiber.Map{"rating": 3}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"too high", recipePath(id, "/rating"), alice, fiber.Map{"rating": 6}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing", recipePath(id, "/rating"), alice, fiber.Map{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown recipe", recipePath(9999, "/rating"), alice, fiber.Map{"rating": 3}, http.StatusNotFound, "NOT_FOUND"},
		{"bad id", "/api/recipes/abc/rating", alice, fiber.Map{"rating": 3}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, status, body)
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestCreateRecipe_Rejections(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.register(t, "alice")

	status, _ := e.do(t, http.MethodPost, "/api/recipes", "", recipePayload("Soup"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := e.do(t, http.MethodPost, "/api/recipes", alice, fiber.Map{
		"ingredients": []fiber.Map{{"name": "Salt", "amount": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
	errs := body["errors"].([]any)
	assert.Contains(t, errs, "Recipe title is required")
	assert.Contains(t, errs, "Ingredient 1: unit is required")
	assert.Contains(t, errs, "Recipe category is required")
}

func TestListRecipes_FilterSortPaginate(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.register(t, "alice")
	e.createRecipe(t, alice, "Lentil Stew", "vegetarian")
	e.createRecipe(t, alice, "Beef Ragu", "comfort")
	e.createRecipe(t, alice, "Apple Crumble", "baking")

	t.Run("search matches tags case-insensitively", func(t *testing.T) {
		status, body := e.do(t, http.MethodGet, "/api/recipes?search=VEGE", "", nil)
		require.Equal(t, http.StatusOK, status)
		recipes := body["recipes"].([]any)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Lentil Stew", recipes[0].(map[string]any)["title"])
	})

	t.Run("sort by title and paginate", func(t *testing.T) {
		status, body := e.do(t, http.MethodGet, "/api/recipes?sortBy=title&sortOrder=asc&limit=2&page=1", "", nil)
		require.Equal(t, http.StatusOK, status)
		recipes := body["recipes"].([]any)
		require.Len(t, recipes, 2)
		assert.Equal(t, "Apple Crumble", recipes[0].(map[string]any)["title"])
		assert.Equal(t, "Beef Ragu", recipes[1].(map[string]any)["title"])

		pagination := body["pagination"].(map[string]any)
		assert.Equal(t, float64(1), pagination["currentPage"])
		assert.Equal(t, float64(2), pagination["totalPages"])
		assert.Equal(t, float64(3), pagination["totalRecipes"])
		assert.Equal(t, true, pagination["hasNextPage"])
		assert.Equal(t, false, pagination["hasPrevPage"])
	})

	t.Run("category filter", func(t *testing.T) {
		status, body := e.do(t, http.MethodGet, "/api/recipes?category=Dessert", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, body["recipes"])
		assert.Equal(t, float64(0), body["pagination"].(map[string]any)["totalPages"])
	})

	t.Run("invalid parameters", func(t *testing.T) {
		status, body := e.do(t, http.MethodGet, "/api/recipes?sortBy=calories&sortOrder=sideways", "", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
		assert.Len(t, body["errors"], 2)
	})
}

func TestGetMyRecipes(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.register(t, "alice")
	bob, _ := e.register(t, "bob")
	total := models.DefaultPageSize + 1
	for i := 0; i < total; i++ {
		e.createRecipe(t, alice, fmt.Sprintf("Recipe %02d", i))
	}
	e.createRecipe(t, bob, "Not Mine")

	status, body := e.do(t, http.MethodGet, "/api/recipes/user/my-recipes", alice, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, total, body["count"])
	assert.NotContains(t, body, "pagination")
	recipes := body["recipes"].([]any)
	require.Len(t, recipes, total)
	first := recipes[0].(map[string]any)
	assert.Equal(t, fmt.Sprintf("Recipe %02d", total-1), first["title"])
	assert.Equal(t, []any{}, first["ratings"])
	for _, r := range recipes {
		assert.NotEqual(t, "Not Mine", r.(map[string]any)["title"])
	}

	status, _ = e.do(t, http.MethodGet, "/api/recipes/user/my-recipes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetRecipeOptions(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodGet, "/api/recipes/meta/options", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["categories"], "Main Course")
	assert.Equal(t, []any{"Easy", "Medium", "Hard"}, body["difficulties"])
	assert.Contains(t, body["sortFields"], "averageRating")
	assert.Equal(t, float64(100), body["defaults"].(map[string]any)["maxLimit"])
}

func TestGetRecipe_InvalidID(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodGet, "/api/recipes/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", body["message"])
}

func TestRecipeReads_UseCache(t *testing.T) {
	e := newTestEnvWithRedis(t)
	alice, _ := e.register(t, "alice")
	id := e.createRecipe(t, alice, "Cached Soup")

	status, _ := e.do(t, http.MethodGet, recipePath(id, ""), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, e.redis.Exists(cache.RecipeKey(id)))

	status, body := e.do(t, http.MethodPost, recipePath(id, "/rating"), alice, fiber.Map{"rating": 5})
	require.Equal(t, http.StatusOK, status, body)

	status, body = e.do(t, http.MethodGet, recipePath(id, ""), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, body["recipe"].(map[string]any)["averageRating"], "writes must invalidate the cached detail")
}
