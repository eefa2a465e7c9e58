package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shipflow/backend/internal/domain/shipping"
)

const defaultAddressKeyPrefix = "address:verified:"

// RedisAddressCache implements shipping.AddressCache on Redis. Entries are
// stored as JSON under the address content hash.
type RedisAddressCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisAddressCache creates the cache on a shared client. The caller
// keeps ownership of the client.
func NewRedisAddressCache(client *redis.Client, keyPrefix string) *RedisAddressCache {
	if keyPrefix == "" {
		keyPrefix = defaultAddressKeyPrefix
	}
	return &RedisAddressCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached address or nil on a miss
func (c *RedisAddressCache) Get(ctx context.Context, hash string) (*shipping.ResolvedAddress, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read address %s: %w", hash, err)
	}

	var addr shipping.ResolvedAddress
	if err := json.Unmarshal(data, &addr); err != nil {
		// a corrupt entry is a miss; the next Set overwrites it
		return nil, nil
	}
	return &addr, nil
}

// Set stores addr under its hash. Unverified addresses are not cached.
func (c *RedisAddressCache) Set(ctx context.Context, addr shipping.ResolvedAddress, ttl time.Duration) error {
	if !addr.Verified() {
		return nil
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("failed to encode address %s: %w", addr.Hash, err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+addr.Hash, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache address %s: %w", addr.Hash, err)
	}
	return nil
}

var _ shipping.AddressCache = (*RedisAddressCache)(nil)
