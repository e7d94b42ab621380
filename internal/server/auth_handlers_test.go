package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipeshare/internal/middleware"
	"recipeshare/internal/models"
	"recipeshare/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestRegister_WithMockRepository(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: map[string]string{
				"username": "chef_maria",
				"email":    "Maria@Example.com",
				"password": "secret123",
			},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "maria@example.com").Return(nil, nil)
				m.On("GetByUsername", mock.Anything, "chef_maria").Return(nil, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
					Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 7 }).
					Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Email",
			body: map[string]string{
				"username": "chef_maria",
				"email":    "maria@example.com",
				"password": "secret123",
			},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "maria@example.com").Return(&models.User{ID: 1}, nil)
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   models.CodeConflict,
		},
		{
			name: "Invalid Payload",
			body: map[string]string{
				"username": "_x",
				"email":    "not-an-email",
				"password": "123",
			},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.mockSetup(repo)

			s := &Server{
				auth:        middleware.NewAuthenticator(testSecret, time.Hour, nil),
				userService: service.NewUserService(repo).WithBcryptCost(bcrypt.MinCost),
			}
			app := fiber.New()
			app.Post("/register", s.Register)

			raw, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["code"])
			} else {
				assert.NotEmpty(t, body["token"])
				assert.Nil(t, body["user"].(map[string]any)["password"], "password hash must not be serialized")
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestRegister_RejectsMalformedBody(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnvWithRedis(t)
	token, id := e.register(t, "home_cook_john")

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		status, body := e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
			"username": "someone_else",
			"email":    "HOME_COOK_JOHN@example.com",
			"password": "secret123",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "CONFLICT", body["code"])
	})

	t.Run("login", func(t *testing.T) {
		status, body := e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email": "home_cook_john@example.com", "password": "secret123",
		})
		require.Equal(t, http.StatusOK, status, body)
		assert.NotEmpty(t, body["token"])
		assert.Equal(t, float64(id), body["user"].(map[string]any)["id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		status, body := e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email": "home_cook_john@example.com", "password": "nope-nope",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", body["message"])
	})

	t.Run("me", func(t *testing.T) {
		status, body := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "home_cook_john", body["user"].(map[string]any)["username"])

		status, _ = e.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		status, body := e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, status, body)

		status, body = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "UNAUTHORIZED", body["code"])
	})
}

func TestLogout_WithoutRedisStillSucceeds(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.register(t, "baker_sarah")

	status, _ := e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnvWithRedis(t)
	t.Setenv("APP_ENV", "production")

	var last int
	for i := 0; i <= 10; i++ {
		last, _ = e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email": "nobody@example.com", "password": "secret123",
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
