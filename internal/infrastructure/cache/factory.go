package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/infrastructure/config"
)

// Stores bundles the address cache and the idempotency store built from one
// Redis configuration. Close releases both and the shared client.
type Stores struct {
	AddressCache interface {
		shipping.AddressCache
		io.Closer
	}
	Idempotency shared.IdempotencyStore

	client *redis.Client
}

// FactoryOption configures NewStores
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger used while building the stores
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-process stores. Enabled by default.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStores builds Redis-backed stores when Redis is enabled and reachable,
// and in-memory stores otherwise
func NewStores(cfg config.RedisConfig, opts ...FactoryOption) (*Stores, error) {
	f := &factory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	if !cfg.Enabled {
		f.logger.Info("redis disabled, using in-memory address cache and idempotency store")
		return newInMemoryStores(), nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory stores; "+
			"webhook deduplication is not shared between instances",
			zap.Error(err),
		)
		return newInMemoryStores(), nil
	}

	f.logger.Info("using redis address cache and idempotency store", zap.String("addr", cfg.Addr()))
	return &Stores{
		AddressCache: redisAddressCacheCloser{NewRedisAddressCache(client, "")},
		Idempotency:  NewRedisIdempotencyStore(client, ""),
		client:       client,
	}, nil
}

func newInMemoryStores() *Stores {
	return &Stores{
		AddressCache: NewInMemoryAddressCache(),
		Idempotency:  NewInMemoryIdempotencyStore(),
	}
}

// Close releases the stores and the Redis client, if any
func (s *Stores) Close() error {
	_ = s.AddressCache.Close()
	_ = s.Idempotency.Close()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ping reports whether Redis answers. In-memory stores are always healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// redisAddressCacheCloser leaves the shared client to Stores.Close
type redisAddressCacheCloser struct {
	*RedisAddressCache
}

func (redisAddressCacheCloser) Close() error { return nil }
