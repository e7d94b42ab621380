package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RecipeKeyPrefix     = "recipe:%d"
	RecipeListGenKey    = "recipes:list:gen"
	RecipeListKeyPrefix = "recipes:list:v%d:%s"
	TokenBlacklistKey   = "blacklist:%s"
)

const (
	RecipeTTL = 5 * time.Minute
	ListTTL   = time.Minute
)

// Keyspaces label cache metrics.
const (
	KeyspaceRecipe = "recipe"
	KeyspaceList   = "recipe_list"
)

func RecipeKey(recipeID uint) string {
	return fmt.Sprintf(RecipeKeyPrefix, recipeID)
}

// RecipeListKey returns the key for one listing under the current list
// generation. Bumping the generation orphans every cached page at once.
func RecipeListKey(ctx context.Context, query any) string {
	gen := int64(0)
	if client != nil {
		if v, err := client.Get(ctx, RecipeListGenKey).Int64(); err == nil {
			gen = v
		}
	}
	raw, _ := json.Marshal(query)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf(RecipeListKeyPrefix, gen, hex.EncodeToString(sum[:8]))
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateRecipe drops the cached detail of one recipe and every cached listing.
func InvalidateRecipe(ctx context.Context, recipeID uint) {
	Invalidate(ctx, RecipeKey(recipeID))
	InvalidateRecipeLists(ctx)
}

// InvalidateRecipes drops the cached details of recipeIDs and every cached listing.
func InvalidateRecipes(ctx context.Context, recipeIDs []uint) {
	if client == nil {
		return
	}
	if len(recipeIDs) > 0 {
		keys := make([]string, len(recipeIDs))
		for i, id := range recipeIDs {
			keys[i] = RecipeKey(id)
		}
		client.Del(ctx, keys...)
	}
	InvalidateRecipeLists(ctx)
}

// InvalidateRecipeLists bumps the list generation.
func InvalidateRecipeLists(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, RecipeListGenKey)
	}
}

// RevokeToken blacklists jti until the token would have expired anyway.
func RevokeToken(ctx context.Context, jti string, until time.Time) error {
	if client == nil {
		return fmt.Errorf("token revocation requires redis")
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, fmt.Sprintf(TokenBlacklistKey, jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was blacklisted. Without Redis nothing is revoked.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, fmt.Sprintf(TokenBlacklistKey, jti)).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return n > 0, nil
}
