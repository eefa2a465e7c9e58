package storefront

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/infrastructure/config"
)

// Registry maps store types to their adapters
type Registry struct {
	mu          sync.RWMutex
	storefronts map[integration.StoreType]integration.Storefront
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{storefronts: make(map[integration.StoreType]integration.Storefront)}
}

// NewRegistryFromConfig registers a REST adapter for every configured store
// type. Unconfigured store types stay unregistered; notifications for them
// fail and are retried until an endpoint is configured.
func NewRegistryFromConfig(cfg config.StorefrontConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := NewRegistry()
	for storeType, endpoint := range cfg.Stores {
		sf, err := NewRESTStorefront(Config{
			StoreType: storeType,
			BaseURL:   endpoint.BaseURL,
			Token:     endpoint.Token,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		r.Register(sf)
		logger.Info("storefront registered", zap.String("store_type", storeType.String()))
	}
	return r, nil
}

// Register adds or replaces the adapter for its store type
func (r *Registry) Register(sf integration.Storefront) {
	if sf == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storefronts[sf.StoreType()] = sf
}

// Get returns the adapter for storeType
func (r *Registry) Get(storeType integration.StoreType) (integration.Storefront, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sf, ok := r.storefronts[storeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrStorefrontNotRegistered, storeType)
	}
	return sf, nil
}

// List returns the registered adapters ordered by store type
func (r *Registry) List() []integration.Storefront {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]integration.Storefront, 0, len(r.storefronts))
	for _, sf := range r.storefronts {
		out = append(out, sf)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StoreType() < out[j].StoreType()
	})
	return out
}

var _ integration.StorefrontRegistry = (*Registry)(nil)
