package persistence

import (
	"context"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClosedPeriodRepository implements ClosedPeriodRepository using GORM
type GormClosedPeriodRepository struct {
	db *gorm.DB
}

// NewGormClosedPeriodRepository creates a new GormClosedPeriodRepository
func NewGormClosedPeriodRepository(db *gorm.DB) *GormClosedPeriodRepository {
	return &GormClosedPeriodRepository{db: db}
}

// Exists reports whether the business has closed the given YYYY-MM month
func (r *GormClosedPeriodRepository) Exists(ctx context.Context, businessID uuid.UUID, month string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.ClosedPeriod{}).
		Where("business_id = ? AND month = ?", businessID, month).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save records a closed month. The (business_id, month) unique index makes a
// repeat close a no-op rather than an error.
func (r *GormClosedPeriodRepository) Save(ctx context.Context, period *domain.ClosedPeriod) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "business_id"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(period).Error
}

// Delete reopens a month
func (r *GormClosedPeriodRepository) Delete(ctx context.Context, businessID uuid.UUID, month string) error {
	return r.db.WithContext(ctx).
		Where("business_id = ? AND month = ?", businessID, month).
		Delete(&domain.ClosedPeriod{}).Error
}

// ListForBusiness returns all closed months for a business, oldest first
func (r *GormClosedPeriodRepository) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.ClosedPeriod, error) {
	var periods []domain.ClosedPeriod
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("month ASC").
		Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}
