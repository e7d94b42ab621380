package server

import (
	"context"
	"time"

	"recipeshare/internal/models"
	"recipeshare/internal/notifications"
	"recipeshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

const handlerTimeout = 5 * time.Second

// ListRecipes handles GET /api/recipes
// @Summary List recipes
// @Description Filter, sort and paginate published recipes
// @Tags recipes
// @Produce json
// @Param search query string false "Case-insensitive match on title, description or tag"
// @Param category query string false "Category"
// @Param difficulty query string false "Easy, Medium or Hard"
// @Param sortBy query string false "One of createdAt, updatedAt, title, averageRating, ratingCount, prepTime, cookTime, servings"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(12)
// @Success 200 {object} object{success=bool,recipes=[]models.Recipe,pagination=models.Pagination}
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes [get]
func (s *Server) ListRecipes(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), handlerTimeout)
	defer cancel()

	page, err := s.recipeService.ListRecipes(ctx, parseRecipeQuery(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"recipes":    page.Recipes,
		"pagination": page.Pagination,
	})
}

// GetRecipe handles GET /api/recipes/:id
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} object{success=bool,recipe=models.Recipe}
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [get]
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.recipeService.GetRecipe(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "recipe": recipe})
}

// CreateRecipe handles POST /api/recipes
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.RecipeInput true "Recipe"
// @Success 201 {object} object{success=bool,message=string,recipe=models.Recipe}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /recipes [post]
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var in service.RecipeInput
	if err := c.BodyParser(&in); err != nil {
		return bodyParseError(c)
	}

	userID := currentUserID(c)
	recipe, err := s.recipeService.CreateRecipe(c.UserContext(), userID, in)
	if err != nil {
		return respondError(c, err)
	}

	s.publishRecipeEvent(c.UserContext(), notifications.EventRecipeCreated, recipe, userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Recipe created successfully",
		"recipe":  recipe,
	})
}

// UpdateRecipe handles PUT /api/recipes/:id
// @Summary Update a recipe
// @Description Partial update by the author. The merged recipe is validated again.
// @Tags recipes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipe ID"
// @Param request body service.RecipePatch true "Changed fields"
// @Success 200 {object} object{success=bool,message=string,recipe=models.Recipe}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [put]
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var patch service.RecipePatch
	if err := c.BodyParser(&patch); err != nil {
		return bodyParseError(c)
	}

	userID := currentUserID(c)
	recipe, err := s.recipeService.UpdateRecipe(c.UserContext(), id, userID, patch)
	if err != nil {
		return respondError(c, err)
	}

	s.publishRecipeEvent(c.UserContext(), notifications.EventRecipeUpdated, recipe, userID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Recipe updated successfully",
		"recipe":  recipe,
	})
}

// DeleteRecipe handles DELETE /api/recipes/:id
// @Summary Delete a recipe
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipe ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [delete]
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	if err := s.recipeService.DeleteRecipe(c.UserContext(), id, userID); err != nil {
		return respondError(c, err)
	}

	s.publishRecipeEvent(c.UserContext(), notifications.EventRecipeDeleted, &models.Recipe{ID: id}, userID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Recipe deleted successfully",
	})
}

// RateRecipe handles POST /api/recipes/:id/rating
// @Summary Rate a recipe
// @Description Adds or replaces the caller's 1-5 rating and returns the recipe with fresh aggregates.
// @Tags recipes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipe ID"
// @Param request body object{rating=int,comment=string} true "Rating"
// @Success 200 {object} object{success=bool,message=string,recipe=models.Recipe}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/rating [post]
func (s *Server) RateRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.SubmitRatingInput
	if err := c.BodyParser(&in); err != nil {
		return bodyParseError(c)
	}
	in.RecipeID = id
	in.UserID = currentUserID(c)

	recipe, err := s.recipeService.SubmitRating(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}

	s.publishRecipeEvent(c.UserContext(), notifications.EventRecipeRated, recipe, in.UserID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Rating added successfully",
		"recipe":  recipe,
	})
}

// GetMyRecipes handles GET /api/recipes/user/my-recipes
// @Summary List the caller's recipes
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,count=int,recipes=[]models.Recipe}
// @Router /recipes/user/my-recipes [get]
func (s *Server) GetMyRecipes(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), handlerTimeout)
	defer cancel()

	recipes, err := s.recipeService.ListByAuthor(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(recipes),
		"recipes": recipes,
	})
}

// GetRecipeOptions handles GET /api/recipes/meta/options
func (s *Server) GetRecipeOptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":      true,
		"categories":   models.Categories,
		"difficulties": models.Difficulties,
		"sortFields":   models.SortFields,
		"sortOrders":   []string{models.SortAsc, models.SortDesc},
		"defaults": fiber.Map{
			"page":      models.DefaultPage,
			"limit":     models.DefaultPageSize,
			"maxLimit":  models.MaxPageSize,
			"sortBy":    "createdAt",
			"sortOrder": models.SortDesc,
		},
	})
}

// respondAuthorRecipes writes one page of authorID's recipes, newest first.
func (s *Server) respondAuthorRecipes(c *fiber.Ctx, authorID uint) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), handlerTimeout)
	defer cancel()

	page, err := s.recipeService.ListAuthorPage(ctx, authorID,
		c.QueryInt("page", models.DefaultPage), c.QueryInt("limit", models.DefaultPageSize))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"recipes":    page.Recipes,
		"pagination": page.Pagination,
	})
}
