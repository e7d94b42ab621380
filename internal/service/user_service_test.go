package service

import (
	"context"
	"strings"
	"testing"

	"recipeshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService() (*UserService, *userRepoStub) {
	repo := newUserRepoStub()
	return NewUserService(repo).WithBcryptCost(bcrypt.MinCost), repo
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	svc, repo := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "chef_maria", Email: " Maria@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["maria@example.com"].Password), []byte("secret1")))

	_, err = svc.Register(ctx, RegisterInput{Username: "someone_else", Email: "MARIA@example.com", Password: "secret1"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	_, err = svc.Register(ctx, RegisterInput{Username: "chef_maria", Email: "other@example.com", Password: "secret1"})
	assert.True(t, models.HasCode(err, models.CodeConflict))
}

func TestUserService_RegisterValidation(t *testing.T) {
	t.Parallel()
	svc, repo := newTestUserService()

	_, err := svc.Register(context.Background(), RegisterInput{Username: "_x", Email: "not-an-email", Password: "123"})
	assertValidationErrors(t, err,
		"Username must be at least 3 characters",
		"Please enter a valid email",
		"Password must be at least 6 characters",
	)

	_, err = svc.Register(context.Background(), RegisterInput{Username: "bad name", Email: "a@b.co", Password: strings.Repeat("p", 129)})
	assertValidationErrors(t, err,
		"Username may only contain letters, numbers and underscores, and cannot start or end with an underscore",
		"Password cannot exceed 128 characters",
	)
	assert.Empty(t, repo.users)
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "baker_sarah", Email: "sarah@example.com", Password: "flour123"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, LoginInput{Email: "SARAH@example.com", Password: "flour123"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, LoginInput{Email: "sarah@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	assert.Equal(t, "Invalid credentials", err.Error())

	_, err = svc.Authenticate(ctx, LoginInput{Email: "nobody@example.com", Password: "flour123"})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()
	svc, repo := newTestUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "home_cook_john", Email: "john@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: registered.ID, Bio: ptr("  Weeknight dinners  ")})
	require.NoError(t, err)
	assert.Equal(t, "Weeknight dinners", user.Bio)
	assert.Empty(t, user.Avatar)

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: registered.ID, Bio: ptr(strings.Repeat("b", 501))})
	assertValidationErrors(t, err, "Bio cannot exceed 500 characters")

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 404, Bio: ptr("x")})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	repo.failUpdate = models.NewConflictError("Username is already taken")
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: registered.ID, Avatar: ptr("/media/a.jpg")})
	assert.True(t, models.HasCode(err, models.CodeConflict))
}
