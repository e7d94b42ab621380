// Package service holds the recipe and account use cases between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"strings"

	"recipeshare/internal/models"
	"recipeshare/internal/observability"
	"recipeshare/internal/repository"
	"recipeshare/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const recipeServiceName = "RecipeService"

// IngredientInput is one ingredient line as submitted by a client.
type IngredientInput struct {
	Name   string `json:"name" validate:"required"`
	Amount string `json:"amount" validate:"required"`
	Unit   string `json:"unit" validate:"required"`
}

// InstructionInput is one step as submitted by a client. StepNumber is
// accepted for compatibility but steps are always renumbered by position.
type InstructionInput struct {
	StepNumber  int    `json:"stepNumber"`
	Instruction string `json:"instruction" validate:"required"`
}

// RecipeInput carries every author-editable recipe field. Aggregates and the
// author are not part of it.
type RecipeInput struct {
	Title        string             `json:"title" validate:"required,max=100"`
	Description  string             `json:"description" validate:"required,max=500"`
	Ingredients  []IngredientInput  `json:"ingredients" validate:"dive"`
	Instructions []InstructionInput `json:"instructions" validate:"dive"`
	PrepTime     int                `json:"prepTime" validate:"required,min=1"`
	CookTime     int                `json:"cookTime" validate:"required,min=1"`
	Servings     int                `json:"servings" validate:"required,min=1"`
	Difficulty   string             `json:"difficulty" validate:"omitempty,difficulty"`
	Category     string             `json:"category" validate:"required,category"`
	Tags         []string           `json:"tags" validate:"dive,max=50"`
	Image        string             `json:"image" validate:"max=500"`
}

// RecipePatch is a partial update; nil fields keep their stored value.
type RecipePatch struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	Ingredients  *[]IngredientInput  `json:"ingredients"`
	Instructions *[]InstructionInput `json:"instructions"`
	PrepTime     *int                `json:"prepTime"`
	CookTime     *int                `json:"cookTime"`
	Servings     *int                `json:"servings"`
	Difficulty   *string             `json:"difficulty"`
	Category     *string             `json:"category"`
	Tags         *[]string           `json:"tags"`
	Image        *string             `json:"image"`
}

// SubmitRatingInput is one user's rating of a recipe.
type SubmitRatingInput struct {
	RecipeID uint    `json:"-"`
	UserID   uint    `json:"-"`
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Comment  *string `json:"comment" validate:"omitempty,max=500"`
}

type RecipeService struct {
	repo repository.RecipeRepository
}

func NewRecipeService(repo repository.RecipeRepository) *RecipeService {
	return &RecipeService{repo: repo}
}

func (in *RecipeInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	in.Category = strings.TrimSpace(in.Category)
	in.Image = strings.TrimSpace(in.Image)
	in.Tags = models.NormalizeTags(in.Tags)
	for i := range in.Ingredients {
		in.Ingredients[i].Name = strings.TrimSpace(in.Ingredients[i].Name)
		in.Ingredients[i].Amount = strings.TrimSpace(in.Ingredients[i].Amount)
		in.Ingredients[i].Unit = strings.TrimSpace(in.Ingredients[i].Unit)
	}
	for i := range in.Instructions {
		in.Instructions[i].Instruction = strings.TrimSpace(in.Instructions[i].Instruction)
	}
}

// apply copies the validated input onto r, renumbering steps.
func (in *RecipeInput) apply(r *models.Recipe) {
	r.Title = in.Title
	r.Description = in.Description
	r.PrepTime = in.PrepTime
	r.CookTime = in.CookTime
	r.TotalTime = in.PrepTime + in.CookTime
	r.Servings = in.Servings
	r.Category = models.Category(in.Category)
	r.Difficulty = models.DifficultyMedium
	if in.Difficulty != "" {
		r.Difficulty = models.Difficulty(in.Difficulty)
	}
	r.Image = in.Image

	ingredients := make([]models.Ingredient, len(in.Ingredients))
	for i, ing := range in.Ingredients {
		ingredients[i] = models.Ingredient{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit}
	}
	r.SetIngredients(ingredients)

	steps := make([]models.Instruction, len(in.Instructions))
	for i, st := range in.Instructions {
		steps[i] = models.Instruction{Instruction: st.Instruction}
	}
	r.SetInstructions(steps)
	r.SetTags(in.Tags)
}

func inputFromRecipe(r *models.Recipe) RecipeInput {
	in := RecipeInput{
		Title:       r.Title,
		Description: r.Description,
		PrepTime:    r.PrepTime,
		CookTime:    r.CookTime,
		Servings:    r.Servings,
		Difficulty:  string(r.Difficulty),
		Category:    string(r.Category),
		Tags:        append([]string(nil), r.Tags...),
		Image:       r.Image,
	}
	for _, ing := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, IngredientInput{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit})
	}
	for _, st := range r.Instructions {
		in.Instructions = append(in.Instructions, InstructionInput{StepNumber: st.StepNumber, Instruction: st.Instruction})
	}
	return in
}

func (p RecipePatch) mergeInto(in *RecipeInput) {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Ingredients != nil {
		in.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		in.Instructions = *p.Instructions
	}
	if p.PrepTime != nil {
		in.PrepTime = *p.PrepTime
	}
	if p.CookTime != nil {
		in.CookTime = *p.CookTime
	}
	if p.Servings != nil {
		in.Servings = *p.Servings
	}
	if p.Difficulty != nil {
		in.Difficulty = *p.Difficulty
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Image != nil {
		in.Image = *p.Image
	}
}

// CreateRecipe validates in and stores a new recipe owned by authorID with
// empty ratings and zero aggregates.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, in RecipeInput) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartServiceSpan(ctx, recipeServiceName, "CreateRecipe", attribute.Int64("user.id", int64(authorID)))
	defer func() { observability.EndSpan(span, err) }()
	defer func() { observability.RecipeMutations.WithLabelValues("create", outcome(err)).Inc() }()

	if authorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	recipe = &models.Recipe{UserID: authorID, Ratings: []models.Rating{}}
	in.apply(recipe)
	recipe.RefreshAggregates()

	if err := s.repo.Create(ctx, recipe); err != nil {
		return nil, err
	}
	observability.RecipesCreated.Inc()
	return s.repo.GetByID(ctx, recipe.ID)
}

// GetRecipe returns the recipe with author and rater projections.
func (s *RecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecipes normalizes q and returns the matching page.
func (s *RecipeService) ListRecipes(ctx context.Context, q models.RecipeQuery) (page *models.RecipePage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, recipeServiceName, "ListRecipes",
		attribute.String("query.sort_by", q.SortBy),
		attribute.Bool("query.has_search", q.Search != ""),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := q.Normalize(); err != nil {
		return nil, err
	}
	recipes, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.RecipePage{
		Recipes:    recipes,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// ListByAuthor returns every recipe written by authorID, newest first, without paging.
func (s *RecipeService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Recipe, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// ListAuthorPage returns one page of authorID's recipes, newest first.
func (s *RecipeService) ListAuthorPage(ctx context.Context, authorID uint, page, limit int) (*models.RecipePage, error) {
	return s.ListRecipes(ctx, models.RecipeQuery{
		AuthorID:  authorID,
		SortBy:    "createdAt",
		SortOrder: models.SortDesc,
		Page:      page,
		Limit:     limit,
	})
}

// UpdateRecipe applies patch to the recipe if actorID is its author. The
// merged result is validated with the same rules as a new recipe.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id, actorID uint, patch RecipePatch) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartServiceSpan(ctx, recipeServiceName, "UpdateRecipe",
		attribute.Int64("recipe.id", int64(id)),
		attribute.Int64("user.id", int64(actorID)),
	)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { observability.RecipeMutations.WithLabelValues("update", outcome(err)).Inc() }()

	recipe, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(recipe, actorID); err != nil {
		return nil, err
	}

	in := inputFromRecipe(recipe)
	patch.mergeInto(&in)
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	in.apply(recipe)
	if err := s.repo.Update(ctx, recipe); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// DeleteRecipe removes the recipe if actorID is its author.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id, actorID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, recipeServiceName, "DeleteRecipe",
		attribute.Int64("recipe.id", int64(id)),
		attribute.Int64("user.id", int64(actorID)),
	)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { observability.RecipeMutations.WithLabelValues("delete", outcome(err)).Inc() }()

	recipe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(recipe, actorID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SubmitRating records or replaces the caller's rating. Any authenticated
// user may rate any recipe, their own included.
func (s *RecipeService) SubmitRating(ctx context.Context, in SubmitRatingInput) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartServiceSpan(ctx, recipeServiceName, "SubmitRating",
		attribute.Int64("recipe.id", int64(in.RecipeID)),
		attribute.Int64("user.id", int64(in.UserID)),
		attribute.Int("rating.score", in.Rating),
	)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { observability.RatingsSubmitted.WithLabelValues(outcome(err)).Inc() }()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if in.Comment != nil {
		trimmed := strings.TrimSpace(*in.Comment)
		in.Comment = &trimmed
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.repo.ApplyRating(ctx, in.RecipeID, in.UserID, in.Rating, in.Comment)
}

// SetRecipeImage stores a new image reference for the recipe if actorID is its author.
func (s *RecipeService) SetRecipeImage(ctx context.Context, id, actorID uint, image string) (*models.Recipe, error) {
	recipe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(recipe, actorID); err != nil {
		return nil, err
	}
	if err := s.repo.SetImage(ctx, id, image); err != nil {
		return nil, err
	}
	observability.RecipeMutations.WithLabelValues("image", "ok").Inc()
	return s.repo.GetByID(ctx, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case models.HasCode(err, models.CodeValidation):
		return "invalid"
	case models.HasCode(err, models.CodeForbidden):
		return "forbidden"
	case models.HasCode(err, models.CodeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
