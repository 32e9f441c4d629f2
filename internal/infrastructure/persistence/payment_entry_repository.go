package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPaymentEntryRepository implements PaymentEntryRepository using GORM
type GormPaymentEntryRepository struct {
	db *gorm.DB
}

// NewGormPaymentEntryRepository creates a new GormPaymentEntryRepository
func NewGormPaymentEntryRepository(db *gorm.DB) *GormPaymentEntryRepository {
	return &GormPaymentEntryRepository{db: db}
}

// FindByIDForBusiness finds a payment entry by ID scoped to a business
func (r *GormPaymentEntryRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.PaymentEntry, error) {
	var entry domain.PaymentEntry
	if err := r.db.WithContext(ctx).
		First(&entry, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindVendorPayments finds undeleted vendor-linked payments for a vendor
func (r *GormPaymentEntryRepository) FindVendorPayments(ctx context.Context, businessID, vendorID uuid.UUID) ([]domain.PaymentEntry, error) {
	var entries []domain.PaymentEntry
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND vendor_id = ? AND kind = ? AND deleted_at IS NULL",
			businessID, vendorID, domain.PaymentKindVendor).
		Order("entry_date ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAllForBusiness finds payment entries for a business with filtering
func (r *GormPaymentEntryRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) ([]domain.PaymentEntry, error) {
	var entries []domain.PaymentEntry
	query := r.filteredQuery(ctx, businessID, filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	field := ValidateSortField(filter.OrderBy, PaymentEntrySortFields, "entry_date")
	dir := ValidateSortOrder(filter.OrderDir)
	if err := query.Order(field + " " + dir + ", created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Save creates or updates a payment entry
func (r *GormPaymentEntryRepository) Save(ctx context.Context, entry *domain.PaymentEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// SaveWithLock saves with optimistic locking (version check). Select(*)
// writes every column, so a cleared vendor link survives the update.
func (r *GormPaymentEntryRepository) SaveWithLock(ctx context.Context, entry *domain.PaymentEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Select("*").
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(entry)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForBusiness counts payment entries for a business
func (r *GormPaymentEntryRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) (int64, error) {
	var count int64
	if err := r.filteredQuery(ctx, businessID, filter).
		Model(&domain.PaymentEntry{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormPaymentEntryRepository) filteredQuery(ctx context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if !filter.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	return query
}
