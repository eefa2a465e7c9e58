package shipping

import (
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

// ResolvedAddress is an address snapshot after verification. ProviderID is
// the provider's reusable handle and is empty when verification failed, in
// which case Errors explains why and the address is display-only.
type ResolvedAddress struct {
	Address    valueobject.Address `json:"address"`
	Hash       string              `json:"hash"`
	ProviderID string              `json:"provider_id,omitempty"`
	Errors     []string            `json:"errors"`
}

// NewResolvedAddress snapshots addr with its content hash
func NewResolvedAddress(addr valueobject.Address, providerID string, errs []string) ResolvedAddress {
	if errs == nil {
		errs = []string{}
	}
	return ResolvedAddress{
		Address:    addr,
		Hash:       addr.ContentHash(),
		ProviderID: providerID,
		Errors:     errs,
	}
}

// Verified reports whether the address can be shipped to
func (r ResolvedAddress) Verified() bool {
	return r.ProviderID != "" && len(r.Errors) == 0
}
