package models

import (
	"math"
	"strings"
	"time"
)

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is one user's score for a recipe. A recipe holds at most one rating per user.
type Rating struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	RecipeID  uint         `gorm:"not null;uniqueIndex:idx_recipe_ratings_recipe_user" json:"-"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_recipe_ratings_recipe_user;index" json:"userId"`
	User      *UserSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Score     int          `gorm:"not null" json:"rating"`
	Comment   string       `gorm:"size:500;default:''" json:"comment"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Rating) TableName() string {
	return "recipe_ratings"
}

// RecomputeAggregates returns the mean score rounded to one decimal place and
// the number of ratings. An empty collection yields (0, 0).
func RecomputeAggregates(ratings []Rating) (average float64, count int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

// RefreshAggregates recomputes AverageRating and RatingCount from Ratings.
func (r *Recipe) RefreshAggregates() {
	r.AverageRating, r.RatingCount = RecomputeAggregates(r.Ratings)
}

// UpsertRating records userID's score. An existing entry for the same user is
// replaced in place; its comment survives when comment is nil or blank.
// Otherwise a new entry is appended. Aggregates are refreshed before returning
// the stored entry.
func (r *Recipe) UpsertRating(userID uint, score int, comment *string, now time.Time) Rating {
	idx := -1
	for i := range r.Ratings {
		if r.Ratings[i].UserID == userID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		existing := r.Ratings[idx]
		existing.Score = score
		if HasComment(comment) {
			existing.Comment = strings.TrimSpace(*comment)
		}
		existing.UpdatedAt = now
		r.Ratings[idx] = existing
	} else {
		entry := Rating{
			RecipeID:  r.ID,
			UserID:    userID,
			Score:     score,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if HasComment(comment) {
			entry.Comment = strings.TrimSpace(*comment)
		}
		r.Ratings = append(r.Ratings, entry)
		idx = len(r.Ratings) - 1
	}

	r.RefreshAggregates()
	return r.Ratings[idx]
}

// HasComment reports whether a submitted comment should replace the stored one.
func HasComment(comment *string) bool {
	return comment != nil && strings.TrimSpace(*comment) != ""
}
