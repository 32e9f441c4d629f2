package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByIDForBusiness finds a bill by ID scoped to a business
func (r *GormBillRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Bill, error) {
	var bill domain.Bill
	if err := r.db.WithContext(ctx).
		First(&bill, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

// FindByIDs loads the given bills for a business; missing ids are simply absent
func (r *GormBillRepository) FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]domain.Bill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var bills []domain.Bill
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// FindAllForBusiness finds bills for a business with filtering
func (r *GormBillRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.BillFilter) ([]domain.Bill, error) {
	var bills []domain.Bill
	query := r.filteredQuery(ctx, businessID, filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	field := ValidateSortField(filter.OrderBy, BillSortFields, "invoice_date")
	dir := ValidateSortOrder(filter.OrderDir)
	if err := query.Order(field + " " + dir + ", created_at DESC").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// FindOpenForVendors finds non-void bills with any outstanding balance,
// optionally restricted to a vendor set
func (r *GormBillRepository) FindOpenForVendors(ctx context.Context, businessID uuid.UUID, vendorIDs []uuid.UUID) ([]domain.Bill, error) {
	var bills []domain.Bill
	query := r.db.WithContext(ctx).
		Where("business_id = ? AND status IN ?", businessID,
			[]domain.BillStatus{domain.BillStatusOpen, domain.BillStatusPartial})
	if len(vendorIDs) > 0 {
		query = query.Where("vendor_id IN ?", vendorIDs)
	}
	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// FindByVendorInRange finds a vendor's non-void bills with invoice date in [from, to]
func (r *GormBillRepository) FindByVendorInRange(ctx context.Context, businessID, vendorID uuid.UUID, from, to time.Time) ([]domain.Bill, error) {
	var bills []domain.Bill
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND vendor_id = ? AND status <> ? AND invoice_date >= ? AND invoice_date <= ?",
			businessID, vendorID, domain.BillStatusVoid, from, to).
		Order("invoice_date ASC").
		Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// Save creates or updates a bill
func (r *GormBillRepository) Save(ctx context.Context, bill *domain.Bill) error {
	return r.db.WithContext(ctx).Save(bill).Error
}

// SaveWithLock saves with optimistic locking (version check). Select(*)
// writes every column, so fields cleared to their zero value persist.
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *domain.Bill) error {
	result := r.db.WithContext(ctx).
		Model(bill).
		Select("*").
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
		Updates(bill)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForBusiness counts bills for a business with optional filters
func (r *GormBillRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.BillFilter) (int64, error) {
	var count int64
	if err := r.filteredQuery(ctx, businessID, filter).
		Model(&domain.Bill{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormBillRepository) filteredQuery(ctx context.Context, businessID uuid.UUID, filter domain.BillFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	return query
}
