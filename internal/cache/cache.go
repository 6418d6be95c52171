package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"barber-growth-backend/config"
)

// Cache is a keyed store of JSON-encoded values shared by the sync workers.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
	Close() error
}

// New selects the backend named by cfg.Cache.Backend.
func New(cfg *config.Config, logger *zap.Logger) (Cache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory(cfg.Cache.KeyPrefix, ttl), nil
	case "redis":
		return NewRedis(&cfg.Redis, cfg.Cache.KeyPrefix, ttl, logger)
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Invalidate(context.Context, ...string) error    { return nil }
func (Nop) Close() error                                   { return nil }
