// Package integration contains the storefront integration bounded context.
//
// Orders arrive from several storefront types (Shopify, CommerceHQ, WooCommerce,
// eBay, Facebook, GrooveKart, BigCommerce). Each type is a closed StoreType value
// and is served by an adapter implementing the Storefront port. The core never
// implements storefront APIs; it only calls them through this interface.
package integration
