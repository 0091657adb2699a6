package apphealth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

var cacheTracer = otel.Tracer("healthai.internal.apphealth.cache")

const defaultCatalogTTL = 10 * time.Minute

// CachedDirectory keeps the slow-changing catalog (specialties and units) in
// Redis. Availability and booking always go to the API.
type CachedDirectory struct {
	scheduling.Directory
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedDirectory(inner scheduling.Directory, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedDirectory {
	if inner == nil || client == nil {
		panic("apphealth: directory and redis client are required")
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedDirectory{Directory: inner, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedDirectory) ListSpecialties(ctx context.Context) ([]scheduling.Specialty, error) {
	var out []scheduling.Specialty
	err := c.cached(ctx, "apphealth:specialties", &out, func() (any, error) {
		return c.Directory.ListSpecialties(ctx)
	})
	return out, err
}

func (c *CachedDirectory) ListUnits(ctx context.Context) ([]scheduling.Unit, error) {
	var out []scheduling.Unit
	err := c.cached(ctx, "apphealth:units", &out, func() (any, error) {
		return c.Directory.ListUnits(ctx)
	})
	return out, err
}

func (c *CachedDirectory) cached(ctx context.Context, key string, out any, load func() (any, error)) error {
	ctx, span := cacheTracer.Start(ctx, "apphealth.cache.get")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(data, out); jerr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	fresh, err := load()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fresh)
	if err != nil {
		return fmt.Errorf("apphealth: marshal %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
	return json.Unmarshal(payload, out)
}
