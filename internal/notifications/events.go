package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"recipeshare/internal/models"
)

// Recipe event types delivered on the live feed.
const (
	EventRecipeCreated = "recipe_created"
	EventRecipeUpdated = "recipe_updated"
	EventRecipeDeleted = "recipe_deleted"
	EventRecipeRated   = "recipe_rated"
)

// RecipeEvent is the envelope written to the live feed.
type RecipeEvent struct {
	Type    string             `json:"type"`
	Payload RecipeEventPayload `json:"payload"`
}

// RecipeEventPayload carries the recipe summary clients need to refresh a card
// without refetching the full document.
type RecipeEventPayload struct {
	RecipeID      uint      `json:"recipeId"`
	Title         string    `json:"title,omitempty"`
	Category      string    `json:"category,omitempty"`
	AuthorID      uint      `json:"authorId,omitempty"`
	ActorID       uint      `json:"actorId,omitempty"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int       `json:"ratingCount"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewRecipeEvent summarizes recipe for eventType. Deleted recipes only need
// an ID, so recipe may be a stub.
func NewRecipeEvent(eventType string, recipe *models.Recipe, actorID uint) RecipeEvent {
	ev := RecipeEvent{
		Type: eventType,
		Payload: RecipeEventPayload{
			ActorID:    actorID,
			OccurredAt: time.Now().UTC(),
		},
	}
	if recipe != nil {
		ev.Payload.RecipeID = recipe.ID
		ev.Payload.Title = recipe.Title
		ev.Payload.Category = string(recipe.Category)
		ev.Payload.AuthorID = recipe.UserID
		ev.Payload.AverageRating = recipe.AverageRating
		ev.Payload.RatingCount = recipe.RatingCount
	}
	return ev
}

// Encode renders the event as the JSON text frame sent to clients.
func (e RecipeEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return string(b), nil
}
