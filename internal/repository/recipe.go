package repository

import (
	"context"
	"errors"
	"time"

	"recipeshare/internal/cache"
	"recipeshare/internal/models"
	"recipeshare/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository defines persistence operations for recipes and their ratings.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	List(ctx context.Context, q models.RecipeQuery) ([]models.Recipe, int64, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Recipe, error)
	Update(ctx context.Context, recipe *models.Recipe) error
	Delete(ctx context.Context, id uint) error
	ApplyRating(ctx context.Context, recipeID, userID uint, score int, comment *string) (*models.Recipe, error)
	SetImage(ctx context.Context, id uint, image string) error
}

type recipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository returns a new RecipeRepository implementation.
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

const searchClause = `(LOWER(recipes.title) LIKE ? ESCAPE '\' OR LOWER(recipes.description) LIKE ? ESCAPE '\' OR EXISTS (` +
	`SELECT 1 FROM recipe_tags WHERE recipe_tags.recipe_id = recipes.id AND LOWER(recipe_tags.name) LIKE ? ESCAPE '\'))`

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.position ASC") }).
		Preload("Instructions", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_instructions.step_number ASC") }).
		Preload("TagRows", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_tags.position ASC") }).
		Preload("Ratings", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ratings.created_at ASC, recipe_ratings.id ASC") }).
		Preload("Ratings.User")
}

func applyFilters(db *gorm.DB, q models.RecipeQuery) *gorm.DB {
	if q.Category != "" {
		db = db.Where("recipes.category = ?", q.Category)
	}
	if q.Difficulty != "" {
		db = db.Where("recipes.difficulty = ?", q.Difficulty)
	}
	if q.AuthorID != 0 {
		db = db.Where("recipes.user_id = ?", q.AuthorID)
	}
	if q.Search != "" {
		pattern := q.SearchPattern()
		db = db.Where(searchClause, pattern, pattern, pattern)
	}
	return db
}

// Create inserts the recipe with its ingredients, instructions and tags.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	defer observability.TrackQuery("insert", "recipes")()

	if err := r.db.WithContext(ctx).Omit("Author", "Ratings").Create(recipe).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRecipeLists(ctx)
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := cache.Aside(ctx, cache.KeyspaceRecipe, cache.RecipeKey(id), &recipe, cache.RecipeTTL, func() error {
		defer observability.TrackQuery("select", "recipes")()

		if err := withDetails(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewRecipeNotFoundError()
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

type listResult struct {
	Recipes []models.Recipe `json:"recipes"`
	Total   int64           `json:"total"`
}

// List returns one page of recipes matching q and the total match count.
// q must already be normalized.
func (r *recipeRepository) List(ctx context.Context, q models.RecipeQuery) ([]models.Recipe, int64, error) {
	var res listResult
	err := cache.Aside(ctx, cache.KeyspaceList, cache.RecipeListKey(ctx, q), &res, cache.ListTTL, func() error {
		defer observability.TrackQuery("select", "recipes")()

		db := readDB(r.db).WithContext(ctx)
		if err := applyFilters(db.Model(&models.Recipe{}), q).Count(&res.Total).Error; err != nil {
			return models.NewInternalError(err)
		}
		res.Recipes = []models.Recipe{}
		if res.Total == 0 || int64(q.Offset()) >= res.Total {
			return nil
		}
		err := withDetails(applyFilters(db.Model(&models.Recipe{}), q)).
			Order(q.OrderClause()).
			Offset(q.Offset()).
			Limit(q.Limit).
			Find(&res.Recipes).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Recipes, res.Total, nil
}

// ListByAuthor returns every recipe written by authorID, newest first. It reads
// the primary so a recipe shows up for its author right after creation.
func (r *recipeRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Recipe, error) {
	defer observability.TrackQuery("select", "recipes")()

	recipes := []models.Recipe{}
	err := withDetails(r.db.WithContext(ctx)).
		Where("recipes.user_id = ?", authorID).
		Order("recipes.created_at DESC, recipes.id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

// Update rewrites the recipe's editable columns and replaces its child rows.
// AverageRating and RatingCount are left alone; only ApplyRating writes them.
func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	defer observability.TrackQuery("update", "recipes")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]any{
			"title":       recipe.Title,
			"description": recipe.Description,
			"prep_time":   recipe.PrepTime,
			"cook_time":   recipe.CookTime,
			"servings":    recipe.Servings,
			"difficulty":  recipe.Difficulty,
			"category":    recipe.Category,
			"image":       recipe.Image,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewRecipeNotFoundError()
		}
		return replaceChildren(tx, recipe)
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateRecipe(ctx, recipe.ID)
	return nil
}

func replaceChildren(tx *gorm.DB, recipe *models.Recipe) error {
	for _, child := range []any{&models.Ingredient{}, &models.Instruction{}, &models.RecipeTag{}} {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(child).Error; err != nil {
			return err
		}
	}

	ingredients := make([]models.Ingredient, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		ing.ID, ing.RecipeID = 0, recipe.ID
		ingredients[i] = ing
	}
	instructions := make([]models.Instruction, len(recipe.Instructions))
	for i, step := range recipe.Instructions {
		step.ID, step.RecipeID = 0, recipe.ID
		instructions[i] = step
	}
	tags := make([]models.RecipeTag, len(recipe.TagRows))
	for i, tag := range recipe.TagRows {
		tag.ID, tag.RecipeID = 0, recipe.ID
		tags[i] = tag
	}

	if len(ingredients) > 0 {
		if err := tx.Create(&ingredients).Error; err != nil {
			return err
		}
	}
	if len(instructions) > 0 {
		if err := tx.Create(&instructions).Error; err != nil {
			return err
		}
	}
	if len(tags) > 0 {
		if err := tx.Create(&tags).Error; err != nil {
			return err
		}
	}
	recipe.Ingredients, recipe.Instructions, recipe.TagRows = ingredients, instructions, tags
	return nil
}

// Delete soft-deletes the recipe; it disappears from every read path.
func (r *recipeRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "recipes")()

	res := r.db.WithContext(ctx).Delete(&models.Recipe{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewRecipeNotFoundError()
	}
	cache.InvalidateRecipe(ctx, id)
	return nil
}

// ApplyRating records userID's score for the recipe and recomputes the
// aggregates inside one transaction.
func (r *recipeRepository) ApplyRating(ctx context.Context, recipeID, userID uint, score int, comment *string) (*models.Recipe, error) {
	done := observability.TrackQuery("upsert", "recipe_ratings")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertRating(tx, recipeID, userID, score, comment)
	})
	done()
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateRecipe(ctx, recipeID)
	return r.GetByID(ctx, recipeID)
}

// upsertRating must run inside a transaction. On Postgres the recipe row is
// locked first so concurrent raters of the same recipe serialize, and the
// aggregates are computed from the rating rows read under that lock.
func upsertRating(tx *gorm.DB, recipeID, userID uint, score int, comment *string) error {
	var recipe models.Recipe
	lookup := tx
	if isPostgres(tx) {
		lookup = lookup.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := lookup.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewRecipeNotFoundError()
		}
		return err
	}
	if err := tx.Where("recipe_id = ?", recipeID).Order("id ASC").Find(&recipe.Ratings).Error; err != nil {
		return err
	}

	entry := recipe.UpsertRating(userID, score, comment, time.Now().UTC())
	entry.ID = 0

	assign := []string{"score", "updated_at"}
	if models.HasComment(comment) {
		assign = append(assign, "comment")
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipe_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Omit("User").Create(&entry).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(map[string]any{
		"average_rating": recipe.AverageRating,
		"rating_count":   recipe.RatingCount,
	}).Error
}

func (r *recipeRepository) SetImage(ctx context.Context, id uint, image string) error {
	defer observability.TrackQuery("update", "recipes")()

	res := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Update("image", image)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewRecipeNotFoundError()
	}
	cache.InvalidateRecipe(ctx, id)
	return nil
}
