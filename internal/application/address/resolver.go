// Package address verifies and normalizes postal addresses before they are
// snapshotted onto orders.
package address

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// input mirrors the required-field contract of a shippable address
type input struct {
	Name    string `json:"name" validate:"required"`
	Street1 string `json:"street1" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	Country string `json:"country" validate:"required,len=2,alpha"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// Resolver validates addresses against the verification provider.
// Successful verifications are cached by content hash, so re-resolving an
// unchanged address never calls the provider again.
type Resolver struct {
	verifier shipping.AddressVerifier
	cache    shipping.AddressCache
	ttl      time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

// NewResolver creates a Resolver. cache may be nil to disable caching.
func NewResolver(verifier shipping.AddressVerifier, cache shipping.AddressCache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Resolver{
		verifier: verifier,
		cache:    cache,
		ttl:      ttl,
		validate: v,
		logger:   logger,
	}
}

// Resolve verifies raw and returns its snapshot. A failed verification is
// not an error: the snapshot carries the provider's messages and an empty
// ProviderID, and is usable for display only. Missing required fields fail
// with ErrAddressInvalid before the provider is called.
func (r *Resolver) Resolve(ctx context.Context, raw valueobject.Address) (shipping.ResolvedAddress, error) {
	if err := r.checkRequired(raw); err != nil {
		return shipping.ResolvedAddress{}, err
	}

	hash := raw.ContentHash()
	if cached := r.lookup(ctx, hash); cached != nil {
		return *cached, nil
	}

	verified, err := r.verifier.VerifyAddress(ctx, raw)
	if err != nil {
		if errors.Is(err, shared.ErrProviderUnavailable) {
			return shipping.ResolvedAddress{}, err
		}
		r.logger.Warn("address verification failed",
			zap.String("address_hash", hash),
			zap.Error(err),
		)
		return snapshot(raw, hash, "", []string{err.Error()}), nil
	}

	normalized := raw
	if !verified.Address.IsEmpty() {
		normalized = verified.Address
	}
	if !verified.Verified || verified.ProviderID == "" {
		errs := verified.Errors
		if len(errs) == 0 {
			errs = []string{shared.ErrAddressInvalid.Message}
		}
		return snapshot(normalized, hash, "", errs), nil
	}

	resolved := snapshot(normalized, hash, verified.ProviderID, nil)
	if r.cache != nil {
		if err := r.cache.Set(ctx, resolved, r.ttl); err != nil {
			r.logger.Warn("failed to cache resolved address",
				zap.String("address_hash", hash),
				zap.Error(err),
			)
		}
	}
	return resolved, nil
}

// Reuse returns current when it is already verified and re-resolves it
// otherwise
func (r *Resolver) Reuse(ctx context.Context, current shipping.ResolvedAddress) (shipping.ResolvedAddress, error) {
	if current.Verified() {
		return current, nil
	}
	return r.Resolve(ctx, current.Address)
}

// RequireVerified resolves raw and fails with ErrAddressInvalid when the
// provider could not verify it
func (r *Resolver) RequireVerified(ctx context.Context, raw valueobject.Address) (shipping.ResolvedAddress, error) {
	resolved, err := r.Resolve(ctx, raw)
	if err != nil {
		return resolved, err
	}
	if !resolved.Verified() {
		return resolved, shared.ErrAddressInvalid.Withf("address invalid: %s", strings.Join(resolved.Errors, "; "))
	}
	return resolved, nil
}

func (r *Resolver) checkRequired(addr valueobject.Address) error {
	in := input{
		Name:    addr.Name(),
		Street1: addr.Street1(),
		City:    addr.City(),
		State:   addr.State(),
		Zip:     addr.Zip(),
		Country: addr.Country(),
		Email:   addr.Email(),
	}
	err := r.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return shared.ErrAddressInvalid.Withf("address is missing or has invalid fields: %s", strings.Join(fields, ", "))
}

func (r *Resolver) lookup(ctx context.Context, hash string) *shipping.ResolvedAddress {
	if r.cache == nil {
		return nil
	}
	cached, err := r.cache.Get(ctx, hash)
	if err != nil {
		r.logger.Warn("address cache lookup failed", zap.String("address_hash", hash), zap.Error(err))
		return nil
	}
	return cached
}

// snapshot keeps the input hash as the bundling key even when the provider
// rewrote the address
func snapshot(addr valueobject.Address, hash, providerID string, errs []string) shipping.ResolvedAddress {
	resolved := shipping.NewResolvedAddress(addr, providerID, errs)
	resolved.Hash = hash
	return resolved
}
