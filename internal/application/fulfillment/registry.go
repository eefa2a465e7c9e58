package fulfillment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// PlatformPool is the operator's shared discounted carrier pool
type PlatformPool struct {
	APIKey     string
	CarrierIDs []string
	// Reserved names the carriers whose rates belong to the platform pool
	Reserved []string
}

// Enabled reports whether platform rates can be quoted
func (p PlatformPool) Enabled() bool {
	return p.APIKey != "" && len(p.Reserved) > 0
}

// IsReserved reports whether carrier is a platform-pool carrier
func (p PlatformPool) IsReserved(carrier string) bool {
	for _, name := range p.Reserved {
		if strings.EqualFold(name, carrier) {
			return true
		}
	}
	return false
}

// ConnectCarrierRequest connects one merchant carrier account
type ConnectCarrierRequest struct {
	Type        string
	Description string
	Reference   string
	Credentials map[string]string
}

// CarrierAccountRegistry owns the user's provider root account and
// connected carrier accounts, plus the platform pool.
type CarrierAccountRegistry struct {
	accounts shipping.AccountRepository
	carriers shipping.CarrierRepository
	provider shipping.AccountProvider
	platform PlatformPool
	locks    appshared.KeyedMutex
	logger   *zap.Logger
}

// NewCarrierAccountRegistry creates the registry
func NewCarrierAccountRegistry(
	accounts shipping.AccountRepository,
	carriers shipping.CarrierRepository,
	provider shipping.AccountProvider,
	platform PlatformPool,
	logger *zap.Logger,
) *CarrierAccountRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CarrierAccountRegistry{
		accounts: accounts,
		carriers: carriers,
		provider: provider,
		platform: platform,
		logger:   logger,
	}
}

// Platform returns the platform pool
func (r *CarrierAccountRegistry) Platform() PlatformPool {
	return r.platform
}

// RootAccount returns the user's provider account, creating it at the
// provider on first use. Creation happens at most once per user: calls are
// serialized in process and the unique row settles races between processes.
func (r *CarrierAccountRegistry) RootAccount(ctx context.Context, userID uuid.UUID) (*shipping.Account, error) {
	account, err := r.accounts.FindByUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	unlock := r.locks.Lock(userID.String())
	defer unlock()

	account, err = r.accounts.FindByUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	issued, err := r.provider.CreateAccount(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	account, err = shipping.NewAccount(userID, issued.ID, issued.APIKey, issued.TestAPIKey)
	if err != nil {
		return nil, err
	}
	if err := r.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			r.logger.Warn("provider account created concurrently, using the stored one",
				zap.String("user_id", userID.String()),
				zap.String("orphan_provider_id", issued.ID),
			)
			return r.accounts.FindByUser(ctx, userID)
		}
		return nil, err
	}

	r.logger.Info("created provider root account",
		zap.String("user_id", userID.String()),
		zap.String("provider_id", issued.ID),
	)
	return account, nil
}

// ConnectCarrier validates the per-type credential fields and connects the
// carrier account under the user's root account
func (r *CarrierAccountRegistry) ConnectCarrier(ctx context.Context, userID uuid.UUID, req ConnectCarrierRequest) (*shipping.Carrier, error) {
	carrierType, ok := shipping.LookupCarrierType(req.Type)
	if !ok {
		return nil, shared.ErrInvalidInput.Withf("unknown carrier type %q", req.Type)
	}
	if err := carrierType.ValidateCredentials(req.Credentials); err != nil {
		return nil, err
	}

	root, err := r.RootAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = carrierType.DisplayName
	}
	providerID, err := r.provider.CreateCarrierAccount(ctx, root.APIKey, shipping.CarrierAccountRequest{
		Type:        carrierType.Name,
		Description: description,
		Reference:   req.Reference,
		Credentials: req.Credentials,
	})
	if err != nil {
		return nil, err
	}

	carrier := shipping.NewCarrier(userID, carrierType.Name, description, req.Reference, providerID)
	if err := r.carriers.Save(ctx, carrier); err != nil {
		return nil, err
	}
	return carrier, nil
}

// Carriers lists the user's connected carrier accounts
func (r *CarrierAccountRegistry) Carriers(ctx context.Context, userID uuid.UUID) ([]shipping.Carrier, error) {
	return r.carriers.FindByUser(ctx, userID)
}

// MerchantCarrierIDs returns the provider ids of the user's own carriers
func (r *CarrierAccountRegistry) MerchantCarrierIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	carriers, err := r.carriers.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(carriers))
	for _, c := range carriers {
		if c.ProviderID != "" {
			ids = append(ids, c.ProviderID)
		}
	}
	return ids, nil
}
