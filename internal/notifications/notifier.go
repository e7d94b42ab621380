// Package notifications fans recipe events out to live-feed websocket clients,
// using Redis pub/sub so every API instance sees every write.
package notifications

import (
	"context"
	"fmt"
	"runtime/debug"

	"recipeshare/internal/middleware"
	"recipeshare/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RecipeEventsChannel is the Redis channel carrying encoded RecipeEvents.
const RecipeEventsChannel = "recipes:events"

// Notifier publishes recipe events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events leave this process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishRecipeEvent encodes ev and publishes it on RecipeEventsChannel.
// Without Redis it is a no-op.
func (n *Notifier) PublishRecipeEvent(ctx context.Context, ev RecipeEvent) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, RecipeEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	observability.EventsPublished.WithLabelValues(ev.Type).Inc()
	return nil
}

// StartRecipeSubscriber subscribes to RecipeEventsChannel and calls onMessage
// with each payload until ctx is cancelled.
func (n *Notifier) StartRecipeSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, RecipeEventsChannel)
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", RecipeEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in recipe subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
