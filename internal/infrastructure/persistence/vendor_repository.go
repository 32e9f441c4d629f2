package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormVendorRepository implements VendorRepository using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// FindByIDForBusiness finds a vendor by ID scoped to a business
func (r *GormVendorRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	if err := r.db.WithContext(ctx).
		First(&vendor, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

// ExistsForBusiness reports whether the vendor exists in the business
func (r *GormVendorRepository) ExistsForBusiness(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAllForBusiness lists vendors for a business ordered by name
func (r *GormVendorRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]domain.Vendor, error) {
	var vendors []domain.Vendor
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// Save creates or updates a vendor
func (r *GormVendorRepository) Save(ctx context.Context, vendor *domain.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}
