package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shipflow/backend/internal/domain/shipping"
)

const defaultCleanupInterval = 10 * time.Minute

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryAddressCache implements shipping.AddressCache in process memory.
// It serves single-instance deployments and tests.
type InMemoryAddressCache struct {
	entries   sync.Map // hash -> *cacheEntry[shipping.ResolvedAddress]
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAddressCache creates the cache and starts its cleanup loop
func NewInMemoryAddressCache() *InMemoryAddressCache {
	c := &InMemoryAddressCache{stopCh: make(chan struct{})}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get returns the cached address or nil on a miss
func (c *InMemoryAddressCache) Get(_ context.Context, hash string) (*shipping.ResolvedAddress, error) {
	value, ok := c.entries.Load(hash)
	if !ok {
		return nil, nil
	}
	entry := value.(*cacheEntry[shipping.ResolvedAddress])
	if entry.isExpired(time.Now()) {
		c.entries.Delete(hash)
		return nil, nil
	}
	addr := entry.value
	return &addr, nil
}

// Set stores addr under its hash. Unverified addresses are not cached.
// A zero ttl keeps the entry until Close.
func (c *InMemoryAddressCache) Set(_ context.Context, addr shipping.ResolvedAddress, ttl time.Duration) error {
	if !addr.Verified() {
		return nil
	}
	entry := &cacheEntry[shipping.ResolvedAddress]{value: addr}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries.Store(addr.Hash, entry)
	return nil
}

// Close stops the cleanup loop. Safe to call more than once.
func (c *InMemoryAddressCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryAddressCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryAddressCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*cacheEntry[shipping.ResolvedAddress]).isExpired(now) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

var _ shipping.AddressCache = (*InMemoryAddressCache)(nil)
