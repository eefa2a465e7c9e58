// Package shipping contains the shipment bounded context: orders bundled into
// parcels, their quotes and rates, label purchase state, and the carrier
// accounts used to shop rates.
//
// An Order moves PENDING_PAYMENT -> PAID -> SHIPPED. The provider ports
// (AddressVerifier, RateProvider, AccountProvider) are implemented in the
// infrastructure layer.
package shipping
