// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recipeshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "recipeshare-api"
	TokenAudience = "recipeshare-client"
)

var (
	errMissingToken = errors.New("authorization header required")
	errRevokedToken = errors.New("token has been revoked")
)

// RevocationChecker reports whether the token with the given jti was revoked.
type RevocationChecker func(ctx context.Context, jti string) (bool, error)

// TokenClaims is the verified identity carried by an access token.
type TokenClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// Authenticator issues and verifies HS256 access tokens.
type Authenticator struct {
	secret    []byte
	ttl       time.Duration
	isRevoked RevocationChecker
	now       func() time.Time
}

// NewAuthenticator returns an Authenticator signing with secret. revoked may be nil.
func NewAuthenticator(secret string, ttl time.Duration, revoked RevocationChecker) *Authenticator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, isRevoked: revoked, now: time.Now}
}

// Issue signs a new token for the user.
func (a *Authenticator) Issue(userID uint, username string) (string, TokenClaims, error) {
	now := a.now()
	jti := uuid.NewString()
	exp := now.Add(a.ttl)

	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, TokenClaims{UserID: userID, Username: username, JTI: jti, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

// Parse verifies raw and returns its claims.
func (a *Authenticator) Parse(ctx context.Context, raw string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token is missing subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	out := &TokenClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if out.JTI != "" && a.isRevoked != nil {
		revoked, err := a.isRevoked(ctx, out.JTI)
		if err != nil {
			Logger.WarnContext(ctx, "token revocation lookup failed", "error", err)
		} else if revoked {
			return nil, errRevokedToken
		}
	}
	return out, nil
}

// Required rejects requests without a valid bearer token and stores the
// caller in c.Locals("userID").
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Authentication required"))
		}
		claims, err := a.Parse(c.UserContext(), raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Invalid or expired token"))
		}
		setIdentity(c, claims)
		return c.Next()
	}
}

// Optional attaches the caller when a valid token is present and never rejects.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return c.Next()
		}
		if claims, err := a.Parse(c.UserContext(), raw); err == nil {
			setIdentity(c, claims)
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, claims *TokenClaims) {
	c.Locals("userID", claims.UserID)
	c.Locals("tokenClaims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

// UserID returns the authenticated caller, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// Claims returns the verified token claims stored by Required or Optional.
func Claims(c *fiber.Ctx) (*TokenClaims, bool) {
	claims, ok := c.Locals("tokenClaims").(*TokenClaims)
	return claims, ok
}
