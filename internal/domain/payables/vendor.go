package payables

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// Vendor is a party the business owes money to
type Vendor struct {
	shared.BusinessAggregateRoot
	Name  string `gorm:"type:varchar(200);not null"`
	Notes string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Vendor) TableName() string {
	return "vendors"
}

// NewVendor creates a new vendor
func NewVendor(businessID uuid.UUID, name string) (*Vendor, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot exceed 200 characters")
	}
	return &Vendor{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
	}, nil
}

// Rename updates the vendor name
func (v *Vendor) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot be empty")
	}
	v.Name = name
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
	return nil
}

// SetNotes updates the free-form notes
func (v *Vendor) SetNotes(notes string) {
	v.Notes = notes
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}

// PurchaseCategoryName is the expense bucket auto-assigned to vendor
// payments when the business has no category yet.
const PurchaseCategoryName = "Purchase"

// Category is an expense bucket for ledger transactions
type Category struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_categories_name,priority:1"`
	Name       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name,priority:2"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category
func NewCategory(businessID uuid.UUID, name string) (*Category, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	}
	now := time.Now()
	return &Category{
		ID:         uuid.New(),
		BusinessID: businessID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
