package server

import (
	"context"

	"recipeshare/internal/middleware"
	"recipeshare/internal/models"
	"recipeshare/internal/notifications"
)

// publishRecipeEvent sends a live-feed event. With Redis the event goes
// through pub/sub so every instance's hub, this one included, receives it
// exactly once; without Redis it is broadcast to the local hub directly.
func (s *Server) publishRecipeEvent(ctx context.Context, eventType string, recipe *models.Recipe, actorID uint) {
	if s.hub == nil {
		return
	}
	ev := notifications.NewRecipeEvent(eventType, recipe, actorID)

	if s.notifier.Enabled() {
		if err := s.notifier.PublishRecipeEvent(context.WithoutCancel(ctx), ev); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish recipe event", "type", eventType, "error", err)
		}
		return
	}

	message, err := ev.Encode()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode recipe event", "type", eventType, "error", err)
		return
	}
	s.hub.BroadcastAll(message)
}
