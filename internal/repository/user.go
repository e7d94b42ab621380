package repository

import (
	"context"
	"errors"
	"strings"

	"recipeshare/internal/cache"
	"recipeshare/internal/middleware"
	"recipeshare/internal/models"
	"recipeshare/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername returns nil, nil when the name is free.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", strings.TrimSpace(username))
}

func (r *userRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where(where, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists with this email or username")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the profile columns a user may change about themselves.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()

	err := r.db.WithContext(ctx).Model(user).Select("username", "avatar", "bio", "updated_at").Updates(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Username is already taken")
		}
		return models.NewInternalError(err)
	}
	r.invalidateRecipeProjections(ctx, user.ID)
	return nil
}

// invalidateRecipeProjections drops cached recipes that embed userID as their
// author or as a rater.
func (r *userRepository) invalidateRecipeProjections(ctx context.Context, userID uint) {
	if cache.GetClient() == nil {
		return
	}
	rated := r.db.Model(&models.Rating{}).Select("recipe_id").Where("user_id = ?", userID)
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("user_id = ? OR id IN (?)", userID, rated).
		Pluck("id", &ids).Error
	if err != nil {
		middleware.Logger.WarnContext(ctx, "recipe cache invalidation lookup failed", "user_id", userID, "error", err)
	}
	cache.InvalidateRecipes(ctx, ids)
}
