package models

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 12
	// MaxPageSize caps limit so a single request cannot pull the whole catalog.
	MaxPageSize = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortColumns maps the public sortBy keys to recipe columns.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"title":         "title",
	"averageRating": "average_rating",
	"ratingCount":   "rating_count",
	"prepTime":      "prep_time",
	"cookTime":      "cook_time",
	"servings":      "servings",
}

// SortFields lists the accepted sortBy keys.
var SortFields = []string{"createdAt", "updatedAt", "title", "averageRating", "ratingCount", "prepTime", "cookTime", "servings"}

// RecipeQuery describes one page of the recipe catalog.
//
// Only a single sort key is applied. Rows with equal sort values come back in
// whatever order the database produces, so pages may interleave differently
// between calls when many recipes share the same value.
type RecipeQuery struct {
	Search     string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	SortBy     string `json:"sortBy"`
	SortOrder  string `json:"sortOrder"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	AuthorID   uint   `json:"authorId,omitempty"`
}

// Normalize fills defaults, clamps page and limit, and rejects unknown enum,
// sort or direction values with every violation listed.
func (q *RecipeQuery) Normalize() error {
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	q.Difficulty = strings.TrimSpace(q.Difficulty)

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	// Keep (Page-1)*Limit from overflowing.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	q.SortOrder = strings.ToLower(strings.TrimSpace(q.SortOrder))
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}

	var problems []string
	if q.Category != "" && !IsValidCategory(q.Category) {
		problems = append(problems, fmt.Sprintf("Unknown category %q", q.Category))
	}
	if q.Difficulty != "" && !IsValidDifficulty(q.Difficulty) {
		problems = append(problems, fmt.Sprintf("Unknown difficulty %q", q.Difficulty))
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		problems = append(problems, fmt.Sprintf("Cannot sort by %q", q.SortBy))
	}
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		problems = append(problems, "sortOrder must be asc or desc")
	}
	if len(problems) > 0 {
		return NewValidationErrors(problems)
	}
	return nil
}

// Offset returns the number of rows skipped before the current page.
func (q RecipeQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// OrderClause returns the SQL ORDER BY expression for the query.
// Normalize must have accepted the query first.
func (q RecipeQuery) OrderClause() string {
	dir := "DESC"
	if q.SortOrder == SortAsc {
		dir = "ASC"
	}
	return "recipes." + sortColumns[q.SortBy] + " " + dir
}

// SearchPattern returns a lowercase LIKE pattern for Search with the LIKE
// metacharacters escaped by a backslash.
func (q RecipeQuery) SearchPattern() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q.Search)) + "%"
}

// Pagination is the page metadata returned with a recipe listing.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecipes int64 `json:"totalRecipes"`
	Limit        int   `json:"limit"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

// NewPagination derives page metadata from the requested page and the total match count.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecipes: total,
		Limit:        limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// RecipePage is one page of recipes together with its pagination metadata.
type RecipePage struct {
	Recipes    []Recipe   `json:"recipes"`
	Pagination Pagination `json:"pagination"`
}
