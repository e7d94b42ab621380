package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRecipe struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func useMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsideFetchesOnceThenHits(t *testing.T) {
	useMiniRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedRecipe) func() error {
		return func() error {
			calls++
			*dest = cachedRecipe{ID: 3, Title: "Classic Spaghetti Carbonara"}
			return nil
		}
	}

	var first cachedRecipe
	require.NoError(t, Aside(ctx, KeyspaceRecipe, RecipeKey(3), &first, RecipeTTL, fetch(&first)))
	var second cachedRecipe
	require.NoError(t, Aside(ctx, KeyspaceRecipe, RecipeKey(3), &second, RecipeTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	useMiniRedis(t)
	var dest cachedRecipe
	err := Aside(context.Background(), KeyspaceRecipe, RecipeKey(9), &dest, RecipeTTL, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestAsideWithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedRecipe
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), KeyspaceRecipe, RecipeKey(1), &dest, RecipeTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateRecipeBumpsListGeneration(t *testing.T) {
	mr := useMiniRedis(t)
	ctx := context.Background()

	query := map[string]any{"page": 1, "limit": 12}
	before := RecipeListKey(ctx, query)
	assert.Equal(t, before, RecipeListKey(ctx, query), "stable for identical queries")

	require.NoError(t, SetJSON(ctx, RecipeKey(5), cachedRecipe{ID: 5}, RecipeTTL))
	InvalidateRecipe(ctx, 5)

	assert.False(t, mr.Exists(RecipeKey(5)))
	assert.NotEqual(t, before, RecipeListKey(ctx, query))
}

func TestInvalidateRecipesDropsEveryKey(t *testing.T) {
	mr := useMiniRedis(t)
	ctx := context.Background()

	for _, id := range []uint{1, 2, 3} {
		require.NoError(t, SetJSON(ctx, RecipeKey(id), cachedRecipe{ID: id}, RecipeTTL))
	}
	before := RecipeListKey(ctx, "all")

	InvalidateRecipes(ctx, []uint{1, 3})
	assert.False(t, mr.Exists(RecipeKey(1)))
	assert.True(t, mr.Exists(RecipeKey(2)))
	assert.False(t, mr.Exists(RecipeKey(3)))
	assert.NotEqual(t, before, RecipeListKey(ctx, "all"))

	before = RecipeListKey(ctx, "all")
	InvalidateRecipes(ctx, nil)
	assert.NotEqual(t, before, RecipeListKey(ctx, "all"), "lists are bumped even with no details to drop")
}

func TestTokenRevocation(t *testing.T) {
	mr := useMiniRedis(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, "abc", time.Now().Add(time.Hour)))
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}
