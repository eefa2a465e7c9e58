package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

// WarehouseModel is the persistence model for the Warehouse aggregate root
type WarehouseModel struct {
	OwnedAggregateModel
	Name      string                                  `gorm:"type:varchar(200);not null"`
	Address   datatypes.JSONType[valueobject.Address] `gorm:"not null"`
	DeletedAt *time.Time                              `gorm:"index"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *partner.Warehouse {
	return &partner.Warehouse{
		OwnedAggregateRoot: m.ToDomainOwned(),
		Name:               m.Name,
		Address:            m.Address.Data(),
		DeletedAt:          m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain Warehouse
func (m *WarehouseModel) FromDomain(w *partner.Warehouse) {
	m.FromDomainOwned(w.OwnedAggregateRoot)
	m.Name = w.Name
	m.Address = datatypes.NewJSONType(w.Address)
	m.DeletedAt = w.DeletedAt
}

// WarehouseModelFromDomain creates a new persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *partner.Warehouse) *WarehouseModel {
	m := &WarehouseModel{}
	m.FromDomain(w)
	return m
}
