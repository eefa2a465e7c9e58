package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := &models.ProductModel{}
	model.FromDomain(product)
	return r.db.WithContext(ctx).Save(model).Error
}

// GormVariantRepository implements VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindByID finds a variant by its ID
func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Variant, error) {
	var model models.VariantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct lists a product's variants in creation order
func (r *GormVariantRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	var rows []models.VariantModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	variants := make([]catalog.Variant, len(rows))
	for i := range rows {
		variants[i] = *rows[i].ToDomain()
	}
	return variants, nil
}

// Save creates or updates a variant
func (r *GormVariantRepository) Save(ctx context.Context, variant *catalog.Variant) error {
	model := &models.VariantModel{}
	model.FromDomain(variant)
	return r.db.WithContext(ctx).Save(model).Error
}

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySource finds the oldest supplier of the user carrying the source reference.
// The LIKE narrows candidates; the exact token match happens on the domain side.
func (r *GormSupplierRepository) FindBySource(ctx context.Context, userID uuid.UUID, ref string) (*catalog.Supplier, error) {
	var rows []models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND source_ids LIKE ?", userID, "%"+ref+"%").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		supplier := rows[i].ToDomain()
		if supplier.HasSource(ref) {
			return supplier, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByProductAndWarehouse finds the supplier stocking a product at a warehouse
func (r *GormSupplierRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (*catalog.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *catalog.Supplier) error {
	model := &models.SupplierModel{}
	model.FromDomain(supplier)
	return r.db.WithContext(ctx).Save(model).Error
}

// LockSource creates the claim row on first use, then locks it FOR UPDATE.
// Concurrent matchers of the same reference queue behind the holder.
func (r *GormSupplierRepository) LockSource(ctx context.Context, userID uuid.UUID, ref string) error {
	db := r.db.WithContext(ctx)
	claim := &models.SourceLockModel{UserID: userID, SourceRef: ref, CreatedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(claim).Error; err != nil {
		return err
	}
	var held models.SourceLockModel
	return db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND source_ref = ?", userID, ref).
		First(&held).Error
}

// AppendSource adds ref to source_ids in a single statement, so appends of
// different references to one supplier never overwrite each other
func (r *GormSupplierRepository) AppendSource(ctx context.Context, id uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierModel{}).
		Where("id = ?", id).
		Where(`(',' || source_ids || ',') NOT LIKE ? ESCAPE '\'`, "%,"+escapeLike(ref)+",%").
		Updates(map[string]any{
			"source_ids": gorm.Expr("CASE WHEN source_ids = '' THEN ? ELSE source_ids || ',' || ? END", ref, ref),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GormListingRepository implements ListingRepository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// FindByID finds a listing by its ID
func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Listing, error) {
	var model models.ListingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySupplier lists a supplier's listings in creation order
func (r *GormListingRepository) FindBySupplier(ctx context.Context, supplierID uuid.UUID) ([]catalog.Listing, error) {
	var rows []models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	listings := make([]catalog.Listing, len(rows))
	for i := range rows {
		listings[i] = *rows[i].ToDomain()
	}
	return listings, nil
}

// Save creates or updates a listing
func (r *GormListingRepository) Save(ctx context.Context, listing *catalog.Listing) error {
	model := &models.ListingModel{}
	model.FromDomain(listing)
	return r.db.WithContext(ctx).Save(model).Error
}

// DecrementInventory lowers a tracked listing's counter in a single statement
func (r *GormListingRepository) DecrementInventory(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ListingModel{}).
		Where("id = ? AND inventory IS NOT NULL", id).
		Update("inventory", gorm.Expr("inventory - ?", quantity))
	return result.Error
}

var (
	_ catalog.ProductRepository  = (*GormProductRepository)(nil)
	_ catalog.VariantRepository  = (*GormVariantRepository)(nil)
	_ catalog.SupplierRepository = (*GormSupplierRepository)(nil)
	_ catalog.ListingRepository  = (*GormListingRepository)(nil)
)
