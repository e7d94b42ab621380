package middleware

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"recipeshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Policy is a named fixed-window limit.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
	OnFail FailPolicy
}

// Route policies.
var (
	RegisterPolicy = Policy{Name: "auth:register", Limit: 10, Window: time.Minute, OnFail: FailClosed}
	LoginPolicy    = Policy{Name: "auth:login", Limit: 10, Window: time.Minute, OnFail: FailClosed}
	CreatePolicy   = Policy{Name: "recipes:create", Limit: 20, Window: time.Minute, OnFail: FailOpen}
	RatingPolicy   = Policy{Name: "recipes:rate", Limit: 30, Window: time.Minute, OnFail: FailOpen}
	UploadPolicy   = Policy{Name: "recipes:image", Limit: 10, Window: time.Minute, OnFail: FailOpen}
)

// rateLimitBypassed reports whether limits are disabled for the current APP_ENV.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for resource/id in the current window.
// It returns whether the hit is allowed and the remaining time-to-reset.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, time.Duration, error) {
	if rateLimitBypassed() {
		return true, 0, nil
	}
	if rdb == nil {
		return false, 0, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	if cnt <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

// RateLimit returns a Fiber middleware enforcing p. It keys by the authenticated
// user when one is present, otherwise by remote IP.
func RateLimit(rdb *redis.Client, p Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = fmt.Sprintf("user:%d", uid)
		}

		resource := p.Name
		if resource == "" {
			resource = c.Path()
		}

		allowed, reset, err := CheckRateLimit(c.UserContext(), rdb, resource, id, p.Limit, p.Window)
		if err != nil {
			if p.OnFail == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					"resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Message: "Service temporarily unavailable",
					Code:    "RATE_LIMIT_UNAVAILABLE",
				})
			}
			return c.Next()
		}

		if !allowed {
			if reset > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(reset.Round(time.Second).Seconds())))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later",
				Code:    "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
