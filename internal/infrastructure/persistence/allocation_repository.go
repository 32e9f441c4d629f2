package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindActiveByPayment returns the active allocations for a payment entry
func (r *GormAllocationRepository) FindActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) ([]domain.BillPayment, error) {
	var rows []domain.BillPayment
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND payment_entry_id = ? AND active", businessID, paymentEntryID).
		Order("applied_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActiveByPaymentAndBills returns the active allocations for a payment
// entry restricted to the given bills
func (r *GormAllocationRepository) FindActiveByPaymentAndBills(ctx context.Context, businessID, paymentEntryID uuid.UUID, billIDs []uuid.UUID) ([]domain.BillPayment, error) {
	if len(billIDs) == 0 {
		return nil, nil
	}
	var rows []domain.BillPayment
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND payment_entry_id = ? AND active AND bill_id IN ?",
			businessID, paymentEntryID, billIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActivePair returns the single active allocation for a (payment, bill)
// pair, or nil if none exists
func (r *GormAllocationRepository) FindActivePair(ctx context.Context, businessID, paymentEntryID, billID uuid.UUID) (*domain.BillPayment, error) {
	var row domain.BillPayment
	if err := r.db.WithContext(ctx).
		First(&row, "business_id = ? AND payment_entry_id = ? AND bill_id = ? AND active",
			businessID, paymentEntryID, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindByBill returns all allocations for a bill, active and voided
func (r *GormAllocationRepository) FindByBill(ctx context.Context, businessID, billID uuid.UUID) ([]domain.BillPayment, error) {
	var rows []domain.BillPayment
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND bill_id = ?", businessID, billID).
		Order("applied_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// sumRow carries a grouped SUM result
type sumRow struct {
	GroupID uuid.UUID
	Total   int64
}

// SumActiveByBill returns the active applied sum for one bill
func (r *GormAllocationRepository) SumActiveByBill(ctx context.Context, businessID, billID uuid.UUID) (valueobject.Money, error) {
	sums, err := r.SumActiveByBills(ctx, businessID, []uuid.UUID{billID})
	if err != nil {
		return valueobject.Zero, err
	}
	return sums[billID], nil
}

// SumActiveByBills returns active applied sums keyed by bill ID
func (r *GormAllocationRepository) SumActiveByBills(ctx context.Context, businessID uuid.UUID, billIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error) {
	out := make(map[uuid.UUID]valueobject.Money)
	if len(billIDs) == 0 {
		return out, nil
	}
	var rows []sumRow
	if err := r.db.WithContext(ctx).
		Model(&domain.BillPayment{}).
		Select("bill_id AS group_id, COALESCE(SUM(amount), 0) AS total").
		Where("business_id = ? AND active AND bill_id IN ?", businessID, billIDs).
		Group("bill_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GroupID] = valueobject.FromMinorUnits(row.Total)
	}
	return out, nil
}

// SumActiveByPayment returns the active allocated sum for one payment entry
func (r *GormAllocationRepository) SumActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (valueobject.Money, error) {
	sums, err := r.SumActiveByPayments(ctx, businessID, []uuid.UUID{paymentEntryID})
	if err != nil {
		return valueobject.Zero, err
	}
	return sums[paymentEntryID], nil
}

// SumActiveByPayments returns active allocated sums keyed by payment entry ID
func (r *GormAllocationRepository) SumActiveByPayments(ctx context.Context, businessID uuid.UUID, paymentEntryIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error) {
	out := make(map[uuid.UUID]valueobject.Money)
	if len(paymentEntryIDs) == 0 {
		return out, nil
	}
	var rows []sumRow
	if err := r.db.WithContext(ctx).
		Model(&domain.BillPayment{}).
		Select("payment_entry_id AS group_id, COALESCE(SUM(amount), 0) AS total").
		Where("business_id = ? AND active AND payment_entry_id IN ?", businessID, paymentEntryIDs).
		Group("payment_entry_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GroupID] = valueobject.FromMinorUnits(row.Total)
	}
	return out, nil
}

// HasActiveByBill reports whether any active allocation references the bill
func (r *GormAllocationRepository) HasActiveByBill(ctx context.Context, businessID, billID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.BillPayment{}).
		Where("business_id = ? AND bill_id = ? AND active", businessID, billID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasActiveByPayment reports whether any active allocation references the payment entry
func (r *GormAllocationRepository) HasActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.BillPayment{}).
		Where("business_id = ? AND payment_entry_id = ? AND active", businessID, paymentEntryID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an allocation row. Plain Save writes every
// column on update, so flipping active off is persisted, and falls back
// to an INSERT when no row matches the primary key.
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *domain.BillPayment) error {
	return r.db.WithContext(ctx).Save(allocation).Error
}
