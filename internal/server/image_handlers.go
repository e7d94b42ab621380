package server

import (
	"io"

	"recipeshare/internal/featureflags"
	"recipeshare/internal/models"
	"recipeshare/internal/notifications"
	"recipeshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadRecipeImage handles POST /api/recipes/:id/image
// @Summary Upload a recipe photo
// @Description Author only. The photo is cropped to a card ratio and stored as JPEG, WebP and thumbnail.
// @Tags recipes
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipe ID"
// @Param image formData file true "Photo"
// @Success 200 {object} object{success=bool,message=string,recipe=models.Recipe,image=service.StoredImage}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/image [post]
func (s *Server) UploadRecipeImage(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if !s.featureFlags.Enabled(featureflags.RecipeImages, userID) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "Image uploads are not enabled"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	recipe, err := s.recipeService.GetRecipe(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if err := service.AuthorizeMutation(recipe, userID); err != nil {
		return respondError(c, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	stored, err := s.imageService.Store(ctx, service.UploadImageInput{
		RecipeID:    id,
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return respondError(c, err)
	}

	recipe, err = s.recipeService.SetRecipeImage(ctx, id, userID, stored.URL)
	if err != nil {
		return respondError(c, err)
	}

	s.publishRecipeEvent(ctx, notifications.EventRecipeUpdated, recipe, userID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Image uploaded successfully",
		"recipe":  recipe,
		"image":   stored,
	})
}
