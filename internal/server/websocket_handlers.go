package server

import (
	"encoding/json"

	"recipeshare/internal/featureflags"
	"recipeshare/internal/middleware"
	"recipeshare/internal/models"
	"recipeshare/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var (
	feedConnected = []byte(`{"type":"connected"}`)
	feedPong      = []byte(`{"type":"pong"}`)
)

// RecipeFeedGate runs before the upgrade: the live_feed flag must be on for
// the caller and the request must be a websocket handshake.
func (s *Server) RecipeFeedGate(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.LiveFeed, currentUserID(c)) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "Live feed is not enabled"})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// RecipeFeedHandler streams recipe events to anonymous and signed-in viewers.
func (s *Server) RecipeFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("live feed registration rejected", "user_id", userID, "error", err)
			msg, _ := json.Marshal(fiber.Map{"type": "error", "error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var in struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(message, &in) == nil && in.Type == "ping" {
				c.TrySend(feedPong)
			}
		}

		client.TrySend(feedConnected)
		go client.WritePump()
		client.ReadPump()
	})
}
