package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByName finds a category by name for a business, nil if absent
func (r *GormCategoryRepository) FindByName(ctx context.Context, businessID uuid.UUID, name string) (*domain.Category, error) {
	var category domain.Category
	if err := r.db.WithContext(ctx).
		First(&category, "business_id = ? AND name = ?", businessID, name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}
