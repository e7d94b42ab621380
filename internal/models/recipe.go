package models

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Difficulty is the effort level of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists every accepted difficulty in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Category is the course a recipe belongs to.
type Category string

const (
	CategoryAppetizer  Category = "Appetizer"
	CategoryMainCourse Category = "Main Course"
	CategoryDessert    Category = "Dessert"
	CategoryBeverage   Category = "Beverage"
	CategorySoup       Category = "Soup"
	CategorySalad      Category = "Salad"
	CategorySideDish   Category = "Side Dish"
	CategoryBreakfast  Category = "Breakfast"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryAppetizer,
	CategoryMainCourse,
	CategoryDessert,
	CategoryBeverage,
	CategorySoup,
	CategorySalad,
	CategorySideDish,
	CategoryBreakfast,
}

// IsValidDifficulty reports whether s names a known difficulty.
func IsValidDifficulty(s string) bool {
	for _, d := range Difficulties {
		if string(d) == s {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether s names a known category.
func IsValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Recipe is the aggregate root: a published recipe with its ingredients,
// instructions, tags and ratings.
type Recipe struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Title        string        `gorm:"size:100;not null" json:"title"`
	Description  string        `gorm:"size:500;not null" json:"description"`
	Ingredients  []Ingredient  `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Instructions []Instruction `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"instructions"`
	PrepTime     int           `gorm:"not null" json:"prepTime"`
	CookTime     int           `gorm:"not null" json:"cookTime"`
	Servings     int           `gorm:"not null" json:"servings"`
	Difficulty   Difficulty    `gorm:"type:varchar(10);not null;default:'Medium';index" json:"difficulty"`
	Category     Category      `gorm:"type:varchar(20);not null;index" json:"category"`
	TagRows      []RecipeTag   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	Tags         []string      `gorm:"-" json:"tags"`
	Image        string        `gorm:"default:''" json:"image"`
	UserID       uint          `gorm:"not null;index" json:"authorId"`
	Author       *UserSummary  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Ratings      []Rating      `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ratings"`
	// AverageRating and RatingCount are maintained from Ratings; never set them directly.
	AverageRating float64        `gorm:"not null;default:0;index" json:"averageRating"`
	RatingCount   int            `gorm:"not null;default:0" json:"ratingCount"`
	TotalTime     int            `gorm:"-" json:"totalTime"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RecipeID uint   `gorm:"not null;index" json:"-"`
	Position int    `gorm:"not null" json:"-"`
	Name     string `gorm:"not null" json:"name"`
	Amount   string `gorm:"not null" json:"amount"`
	Unit     string `gorm:"not null" json:"unit"`
}

// TableName specifies the table name for GORM
func (Ingredient) TableName() string {
	return "recipe_ingredients"
}

// Instruction is a numbered step. StepNumber is 1-based and equals its position.
type Instruction struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RecipeID    uint   `gorm:"not null;index" json:"-"`
	StepNumber  int    `gorm:"not null" json:"stepNumber"`
	Instruction string `gorm:"type:text;not null" json:"instruction"`
}

// TableName specifies the table name for GORM
func (Instruction) TableName() string {
	return "recipe_instructions"
}

// RecipeTag stores one tag of a recipe.
type RecipeTag struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RecipeID uint   `gorm:"not null;index" json:"-"`
	Position int    `gorm:"not null" json:"-"`
	Name     string `gorm:"size:50;not null;index" json:"name"`
}

// TableName specifies the table name for GORM
func (RecipeTag) TableName() string {
	return "recipe_tags"
}

// AfterFind fills the derived read-only fields after a load.
func (r *Recipe) AfterFind(_ *gorm.DB) error {
	r.Tags = TagNames(r.TagRows)
	r.TotalTime = r.PrepTime + r.CookTime
	return nil
}

// IsAuthoredBy reports whether userID is the recipe's author.
func (r *Recipe) IsAuthoredBy(userID uint) bool {
	return r.UserID == userID
}

// SetTags replaces the tag list, keeping TagRows in step.
func (r *Recipe) SetTags(tags []string) {
	r.Tags = NormalizeTags(tags)
	r.TagRows = make([]RecipeTag, len(r.Tags))
	for i, name := range r.Tags {
		r.TagRows[i] = RecipeTag{RecipeID: r.ID, Position: i, Name: name}
	}
}

// SetInstructions replaces the steps and renumbers them 1..n in order.
func (r *Recipe) SetInstructions(steps []Instruction) {
	r.Instructions = RenumberInstructions(steps)
}

// SetIngredients replaces the ingredient list, recording display order.
func (r *Recipe) SetIngredients(items []Ingredient) {
	out := make([]Ingredient, len(items))
	for i, it := range items {
		it.Position = i
		it.RecipeID = r.ID
		out[i] = it
	}
	r.Ingredients = out
}

// NormalizeTags trims every tag and drops blank ones, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TagNames returns tag names ordered by position.
func TagNames(rows []RecipeTag) []string {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b RecipeTag) int { return cmp.Compare(a.Position, b.Position) })
	names := make([]string, len(sorted))
	for i, row := range sorted {
		names[i] = row.Name
	}
	return names
}

// RenumberInstructions assigns StepNumber = index+1, dropping any gaps.
func RenumberInstructions(steps []Instruction) []Instruction {
	out := make([]Instruction, len(steps))
	for i, s := range steps {
		s.StepNumber = i + 1
		out[i] = s
	}
	return out
}
