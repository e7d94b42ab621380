// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"embed"
	"fmt"
	"log"
	"os"

	"recipeshare/internal/models"
	"recipeshare/internal/repository"
	"recipeshare/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/sample.yml
var fixtureFS embed.FS

const defaultFixture = "fixtures/sample.yml"

// Options configuration for the seeder
type Options struct {
	// FixturePath overrides the embedded sample fixtures when set.
	FixturePath string
	FakeUsers   int
	FakeRecipes int
	// FakeRatings is the number of ratings each fake recipe receives, capped
	// by the number of available raters.
	FakeRatings int
	ShouldClean bool
	BcryptCost  int
}

// UserFixture is a sample account.
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
}

// IngredientFixture is one ingredient line of a sample recipe.
type IngredientFixture struct {
	Name   string `yaml:"name"`
	Amount string `yaml:"amount"`
	Unit   string `yaml:"unit"`
}

// RatingFixture is one sample user's rating of the enclosing recipe.
type RatingFixture struct {
	User    string `yaml:"user"`
	Rating  int    `yaml:"rating"`
	Comment string `yaml:"comment"`
}

// RecipeFixture is a sample recipe owned by the user named in Author.
type RecipeFixture struct {
	Title        string              `yaml:"title"`
	Author       string              `yaml:"author"`
	Description  string              `yaml:"description"`
	PrepTime     int                 `yaml:"prepTime"`
	CookTime     int                 `yaml:"cookTime"`
	Servings     int                 `yaml:"servings"`
	Difficulty   string              `yaml:"difficulty"`
	Category     string              `yaml:"category"`
	Tags         []string            `yaml:"tags"`
	Ingredients  []IngredientFixture `yaml:"ingredients"`
	Instructions []string            `yaml:"instructions"`
	Ratings      []RatingFixture     `yaml:"ratings"`
}

// Fixtures is the decoded fixture document.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Recipes []RecipeFixture `yaml:"recipes"`
}

// Result reports what a seeding run created.
type Result struct {
	Users   []*models.User
	Recipes []*models.Recipe
	Ratings int
}

// LoadFixtures reads the fixture document at path, or the embedded sample set
// when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = fixtureFS.ReadFile(defaultFixture)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &fx, nil
}

// Input converts the fixture into the payload accepted by the recipe service.
func (rf RecipeFixture) Input() service.RecipeInput {
	in := service.RecipeInput{
		Title:       rf.Title,
		Description: rf.Description,
		PrepTime:    rf.PrepTime,
		CookTime:    rf.CookTime,
		Servings:    rf.Servings,
		Difficulty:  rf.Difficulty,
		Category:    rf.Category,
		Tags:        rf.Tags,
	}
	for _, ing := range rf.Ingredients {
		in.Ingredients = append(in.Ingredients, service.IngredientInput{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit})
	}
	for i, step := range rf.Instructions {
		in.Instructions = append(in.Instructions, service.InstructionInput{StepNumber: i + 1, Instruction: step})
	}
	return in
}

// Seeder writes fixtures and fake data through the same services the API uses,
// so every seeded recipe and rating passes validation and aggregate upkeep.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	recipes *service.RecipeService
	account *service.UserService
	opts    Options
}

// NewSeeder wires a Seeder over db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	users := repository.NewUserRepository(db)
	return &Seeder{
		db:      db,
		users:   users,
		recipes: service.NewRecipeService(repository.NewRecipeRepository(db)),
		account: service.NewUserService(users).WithBcryptCost(opts.BcryptCost),
		opts:    opts,
	}
}

// ClearAll hard-deletes every row of the recipe schema, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("Clearing existing data...")
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, model := range []any{
		&models.Rating{},
		&models.RecipeTag{},
		&models.Instruction{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run loads the fixtures, then adds the configured amount of fake data.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	fx, err := LoadFixtures(s.opts.FixturePath)
	if err != nil {
		return nil, err
	}
	res, err := s.Apply(ctx, fx)
	if err != nil {
		return nil, err
	}

	if s.opts.FakeUsers > 0 || s.opts.FakeRecipes > 0 {
		if err := s.seedFake(ctx, res); err != nil {
			return nil, err
		}
	}

	log.Printf("Seeded %d users, %d recipes, %d ratings", len(res.Users), len(res.Recipes), res.Ratings)
	return res, nil
}

// Apply writes the given fixtures. Users that already exist are reused, so
// applying the same document twice only adds recipes.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (*Result, error) {
	res := &Result{}
	byName := make(map[string]*models.User, len(fx.Users))

	for _, uf := range fx.Users {
		user, err := s.ensureUser(ctx, uf)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", uf.Username, err)
		}
		byName[uf.Username] = user
		res.Users = append(res.Users, user)
	}

	for _, rf := range fx.Recipes {
		author, ok := byName[rf.Author]
		if !ok {
			return nil, fmt.Errorf("recipe %q: unknown author %q", rf.Title, rf.Author)
		}
		recipe, err := s.recipes.CreateRecipe(ctx, author.ID, rf.Input())
		if err != nil {
			return nil, fmt.Errorf("seed recipe %q: %w", rf.Title, err)
		}

		for _, rt := range rf.Ratings {
			rater, ok := byName[rt.User]
			if !ok {
				return nil, fmt.Errorf("recipe %q: unknown rater %q", rf.Title, rt.User)
			}
			in := service.SubmitRatingInput{RecipeID: recipe.ID, UserID: rater.ID, Rating: rt.Rating}
			if rt.Comment != "" {
				comment := rt.Comment
				in.Comment = &comment
			}
			if recipe, err = s.recipes.SubmitRating(ctx, in); err != nil {
				return nil, fmt.Errorf("rate recipe %q: %w", rf.Title, err)
			}
			res.Ratings++
		}
		res.Recipes = append(res.Recipes, recipe)
	}
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, uf UserFixture) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, uf.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user, err := s.account.Register(ctx, service.RegisterInput{
		Username: uf.Username,
		Email:    uf.Email,
		Password: uf.Password,
	})
	if err != nil {
		return nil, err
	}
	if uf.Bio == "" {
		return user, nil
	}
	bio := uf.Bio
	return s.account.UpdateProfile(ctx, service.UpdateProfileInput{UserID: user.ID, Bio: &bio})
}
