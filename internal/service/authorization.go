package service

import "recipeshare/internal/models"

// AuthorizeMutation allows actorID to update or delete recipe only when they
// wrote it. Rating is not gated here.
func AuthorizeMutation(recipe *models.Recipe, actorID uint) error {
	if recipe == nil {
		return models.NewRecipeNotFoundError()
	}
	if actorID == 0 || !recipe.IsAuthoredBy(actorID) {
		return models.NewForbiddenError("Not authorized to modify this recipe")
	}
	return nil
}
