package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"recipeshare/internal/models"
	"recipeshare/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

var units = []string{"g", "kg", "ml", "cup", "cups", "tbsp", "tsp", "pinch", "large", "clove"}

// Factory builds plausible fake accounts, recipes and ratings.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory returns a Factory. A zero seed draws one from the clock.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed)}
}

// User returns a fake account fixture with a unique-looking username.
func (f *Factory) User() UserFixture {
	base := nonAlnum.ReplaceAllString(f.faker.Username(), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "cook"
	}
	username := fmt.Sprintf("%s_%d", base, f.faker.Number(1000, 9999))
	return UserFixture{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: "password123",
		Bio:      f.faker.Sentence(10),
	}
}

// Recipe returns a fake recipe that passes validation.
func (f *Factory) Recipe() service.RecipeInput {
	category := models.Categories[f.faker.Number(0, len(models.Categories)-1)]
	difficulty := models.Difficulties[f.faker.Number(0, len(models.Difficulties)-1)]

	in := service.RecipeInput{
		Title:       f.title(category),
		Description: f.faker.Sentence(12),
		PrepTime:    f.faker.Number(5, 45),
		CookTime:    f.faker.Number(5, 120),
		Servings:    f.faker.Number(1, 8),
		Difficulty:  string(difficulty),
		Category:    string(category),
	}

	for i := f.faker.Number(3, 8); i > 0; i-- {
		name := f.faker.Vegetable()
		if f.faker.Bool() {
			name = f.faker.Fruit()
		}
		in.Ingredients = append(in.Ingredients, service.IngredientInput{
			Name:   name,
			Amount: fmt.Sprintf("%d", f.faker.Number(1, 500)),
			Unit:   f.faker.RandomString(units),
		})
	}
	for i := f.faker.Number(2, 6); i > 0; i-- {
		in.Instructions = append(in.Instructions, service.InstructionInput{Instruction: f.faker.Sentence(8)})
	}
	for i := f.faker.Number(1, 4); i > 0; i-- {
		in.Tags = append(in.Tags, strings.ToLower(f.faker.Adjective()))
	}
	return in
}

func (f *Factory) title(category models.Category) string {
	var dish string
	switch category {
	case models.CategoryDessert:
		dish = f.faker.Dessert()
	case models.CategoryBreakfast:
		dish = f.faker.Breakfast()
	case models.CategoryAppetizer, models.CategorySideDish:
		dish = f.faker.Snack()
	case models.CategoryBeverage:
		dish = f.faker.Fruit() + " " + f.faker.RandomString([]string{"smoothie", "lemonade", "spritzer", "tea"})
	default:
		dish = f.faker.Dinner()
	}
	if len(dish) > 100 {
		dish = dish[:100]
	}
	return dish
}

// Rating returns a fake score in range, with a comment about half the time.
func (f *Factory) Rating() (int, *string) {
	score := f.faker.Number(models.MinRatingScore, models.MaxRatingScore)
	if !f.faker.Bool() {
		return score, nil
	}
	comment := f.faker.Sentence(6)
	return score, &comment
}

// Raters picks up to n distinct users from pool.
func (f *Factory) Raters(pool []*models.User, n int) []*models.User {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]*models.User, 0, n)
	for _, idx := range f.faker.Rand.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out
}

func (s *Seeder) seedFake(ctx context.Context, res *Result) error {
	f := NewFactory(0)

	for i := 0; i < s.opts.FakeUsers; i++ {
		user, err := s.ensureUser(ctx, f.User())
		if err != nil {
			return fmt.Errorf("seed fake user: %w", err)
		}
		res.Users = append(res.Users, user)
	}
	if len(res.Users) == 0 {
		return fmt.Errorf("fake recipes need at least one user")
	}

	for i := 0; i < s.opts.FakeRecipes; i++ {
		author := res.Users[f.faker.Number(0, len(res.Users)-1)]
		recipe, err := s.recipes.CreateRecipe(ctx, author.ID, f.Recipe())
		if err != nil {
			return fmt.Errorf("seed fake recipe: %w", err)
		}

		for _, rater := range f.Raters(res.Users, s.opts.FakeRatings) {
			score, comment := f.Rating()
			recipe, err = s.recipes.SubmitRating(ctx, service.SubmitRatingInput{
				RecipeID: recipe.ID,
				UserID:   rater.ID,
				Rating:   score,
				Comment:  comment,
			})
			if err != nil {
				return fmt.Errorf("seed fake rating: %w", err)
			}
			res.Ratings++
		}
		res.Recipes = append(res.Recipes, recipe)
	}
	return nil
}
