package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"recipeshare/internal/models"
)

// recipeRepoStub keeps recipes in memory and applies ratings through the
// domain upsert, mirroring the SQL repository's contract.
type recipeRepoStub struct {
	mu      sync.Mutex
	nextID  uint
	recipes map[uint]*models.Recipe
	deleted []uint
	updates int
}

func newRecipeRepoStub() *recipeRepoStub {
	return &recipeRepoStub{nextID: 1, recipes: make(map[uint]*models.Recipe)}
}

func (s *recipeRepoStub) clone(r *models.Recipe) *models.Recipe {
	c := *r
	c.Ratings = slices.Clone(r.Ratings)
	c.Ingredients = slices.Clone(r.Ingredients)
	c.Instructions = slices.Clone(r.Instructions)
	c.TagRows = slices.Clone(r.TagRows)
	c.Tags = slices.Clone(r.Tags)
	c.TotalTime = c.PrepTime + c.CookTime
	return &c
}

func (s *recipeRepoStub) Create(_ context.Context, r *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID
	s.nextID++
	r.CreatedAt = time.Now()
	s.recipes[r.ID] = s.clone(r)
	return nil
}

func (s *recipeRepoStub) GetByID(_ context.Context, id uint) (*models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, models.NewRecipeNotFoundError()
	}
	return s.clone(r), nil
}

func (s *recipeRepoStub) List(_ context.Context, q models.RecipeQuery) ([]models.Recipe, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Recipe
	for _, r := range s.recipes {
		if q.AuthorID != 0 && r.UserID != q.AuthorID {
			continue
		}
		if q.Category != "" && string(r.Category) != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, *s.clone(r))
	}
	slices.SortFunc(out, func(a, b models.Recipe) int { return int(a.ID) - int(b.ID) })
	total := int64(len(out))
	start := min(q.Offset(), len(out))
	end := min(start+q.Limit, len(out))
	return out[start:end], total, nil
}

func (s *recipeRepoStub) ListByAuthor(_ context.Context, authorID uint) ([]models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Recipe{}
	for _, r := range s.recipes {
		if r.UserID == authorID {
			out = append(out, *s.clone(r))
		}
	}
	slices.SortFunc(out, func(a, b models.Recipe) int { return int(b.ID) - int(a.ID) })
	return out, nil
}

func (s *recipeRepoStub) Update(_ context.Context, r *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.recipes[r.ID]
	if !ok {
		return models.NewRecipeNotFoundError()
	}
	s.updates++
	next := s.clone(r)
	next.Ratings = stored.Ratings
	next.AverageRating, next.RatingCount = stored.AverageRating, stored.RatingCount
	s.recipes[r.ID] = next
	return nil
}

func (s *recipeRepoStub) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return models.NewRecipeNotFoundError()
	}
	delete(s.recipes, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *recipeRepoStub) ApplyRating(_ context.Context, recipeID, userID uint, score int, comment *string) (*models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[recipeID]
	if !ok {
		return nil, models.NewRecipeNotFoundError()
	}
	r.UpsertRating(userID, score, comment, time.Now())
	return s.clone(r), nil
}

func (s *recipeRepoStub) SetImage(_ context.Context, id uint, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return models.NewRecipeNotFoundError()
	}
	r.Image = image
	return nil
}

// userRepoStub keys users by email.
type userRepoStub struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]*models.User
	// failUpdate, when set, is returned from Update.
	failUpdate error
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{nextID: 1, users: make(map[string]*models.User)}
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *userRepoStub) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	c := *u
	s.users[u.Email] = &c
	return nil
}

func (s *userRepoStub) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	c := *u
	s.users[u.Email] = &c
	return nil
}

// ratingBeforeUpdateRepo commits a rating between the service's read and its
// Update, the interleaving a concurrent rater produces.
type ratingBeforeUpdateRepo struct {
	*recipeRepoStub
	raterID uint
}

func (r ratingBeforeUpdateRepo) Update(ctx context.Context, recipe *models.Recipe) error {
	if _, err := r.recipeRepoStub.ApplyRating(ctx, recipe.ID, r.raterID, 5, nil); err != nil {
		return err
	}
	return r.recipeRepoStub.Update(ctx, recipe)
}
