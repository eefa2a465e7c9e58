// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model here carries the table
// mapping plus ToDomain/FromDomain mappers used by the repositories.
//
// Address snapshots, product images and variant catalogues, and the cached
// quote envelope are JSON columns (gorm.io/datatypes); everything queried on
// (hashes, ids, flags, money) is a structured column.
package models

// All lists every model for auto-migration in tests and development
func All() []any {
	return []any{
		&WarehouseModel{},
		&ProductModel{},
		&VariantModel{},
		&SupplierModel{},
		&SourceLockModel{},
		&ListingModel{},
		&OrderModel{},
		&OrderItemModel{},
		&AccountModel{},
		&CarrierModel{},
		&AccountBalanceModel{},
		&AccountCreditModel{},
	}
}

