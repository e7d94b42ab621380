package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"recipeshare/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishRecipeEvent(context.Background(), NewRecipeEvent(EventRecipeDeleted, nil, 1)))
	assert.NoError(t, n.StartRecipeSubscriber(context.Background(), func(string) { t.Fatal("unexpected message") }))
}

func TestRecipeEvent_Encode(t *testing.T) {
	t.Parallel()
	recipe := &models.Recipe{ID: 9, UserID: 2, Title: "Carbonara", Category: models.CategoryMainCourse, AverageRating: 3.5, RatingCount: 2}

	raw, err := NewRecipeEvent(EventRecipeRated, recipe, 4).Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "recipe_rated", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.EqualValues(t, 9, payload["recipeId"])
	assert.EqualValues(t, 2, payload["authorId"])
	assert.EqualValues(t, 4, payload["actorId"])
	assert.EqualValues(t, 3.5, payload["averageRating"])
	assert.EqualValues(t, 2, payload["ratingCount"])
	assert.Equal(t, "Main Course", payload["category"])
}

func TestHub_StartWiringForwardsPublishedEvents(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	client, err := hub.Register(0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	recipe := &models.Recipe{ID: 11, UserID: 1, Title: "Cookies"}
	require.NoError(t, n.PublishRecipeEvent(context.Background(), NewRecipeEvent(EventRecipeCreated, recipe, 1)))

	select {
	case msg := <-client.Send:
		var ev RecipeEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, EventRecipeCreated, ev.Type)
		assert.Equal(t, uint(11), ev.Payload.RecipeID)
		assert.Equal(t, "Cookies", ev.Payload.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	payloads := make(chan string, 4)
	require.NoError(t, n.StartRecipeSubscriber(ctx, func(payload string) { payloads <- payload }))

	require.NoError(t, n.PublishRecipeEvent(context.Background(), NewRecipeEvent(EventRecipeUpdated, &models.Recipe{ID: 1}, 1)))
	select {
	case <-payloads:
	case <-time.After(2 * time.Second):
		t.Fatal("event before cancel was not delivered")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishRecipeEvent(context.Background(), NewRecipeEvent(EventRecipeUpdated, &models.Recipe{ID: 1}, 1)))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberSurvivesPanickingHandler(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 2)
	require.NoError(t, n.StartRecipeSubscriber(ctx, func(string) {
		calls <- struct{}{}
		panic("boom")
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, n.PublishRecipeEvent(context.Background(), NewRecipeEvent(EventRecipeDeleted, &models.Recipe{ID: uint(i + 1)}, 1)))
	}
	assert.Eventually(t, func() bool { return len(calls) == 2 }, 2*time.Second, 10*time.Millisecond)
}
