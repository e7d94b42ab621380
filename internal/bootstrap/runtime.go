// Package bootstrap wires the process-wide runtime shared by the commands:
// database, Redis, tracing and optional fixture seeding.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipeshare/internal/cache"
	"recipeshare/internal/config"
	"recipeshare/internal/database"
	"recipeshare/internal/middleware"
	"recipeshare/internal/models"
	"recipeshare/internal/observability"
	"recipeshare/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SampleFixtures selects the embedded fixture set in SEED_FIXTURES.
const SampleFixtures = "sample"

// Options control runtime initialization behavior.
type Options struct {
	// SeedFixtures applies SEED_FIXTURES to an empty database.
	SeedFixtures bool
	// Tracing starts the configured span exporter.
	Tracing bool
	// Version is reported as the service version in traces.
	Version string
}

// Runtime holds the initialized shared dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to DB and Redis and optionally runs fixture seeding.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{shutdownTracing: func(context.Context) error { return nil }}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceVersion: opts.Version,
			Environment:    cfg.Env,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   1,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	if opts.SeedFixtures {
		if err := SeedIfEmpty(context.Background(), cfg, db); err != nil {
			return nil, fmt.Errorf("fixture seeding failed: %w", err)
		}
	}

	return rt, nil
}

// Close flushes pending spans.
func (rt *Runtime) Close(ctx context.Context) error {
	return rt.shutdownTracing(ctx)
}

// SeedIfEmpty applies SEED_FIXTURES when the recipe table has no rows.
// Production environments never seed.
func SeedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	source := strings.TrimSpace(cfg.SeedFixtures)
	if source == "" {
		return nil
	}
	if cfg.IsProduction() {
		return errors.New("SEED_FIXTURES must not be set in production")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Recipe{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		middleware.Logger.Info("skipping fixture seeding, recipes already present", "recipes", count)
		return nil
	}

	path := source
	if strings.EqualFold(source, SampleFixtures) {
		path = ""
	}
	res, err := seed.NewSeeder(db, seed.Options{FixturePath: path}).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("fixtures seeded", "source", source, "users", len(res.Users), "recipes", len(res.Recipes))
	return nil
}
