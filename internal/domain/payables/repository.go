package payables

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	VendorID *uuid.UUID
	Status   *BillStatus
	FromDate *time.Time // Invoice date range start
	ToDate   *time.Time // Invoice date range end
	DueFrom  *time.Time
	DueTo    *time.Time
}

// BillRepository defines the interface for bill persistence
type BillRepository interface {
	// FindByIDForBusiness finds a bill by ID scoped to a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Bill, error)

	// FindByIDs loads the given bills for a business; missing ids are simply absent
	FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]Bill, error)

	// FindAllForBusiness finds bills for a business with filtering
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter BillFilter) ([]Bill, error)

	// FindOpenForVendors finds non-void bills with any outstanding balance,
	// optionally restricted to a vendor set
	FindOpenForVendors(ctx context.Context, businessID uuid.UUID, vendorIDs []uuid.UUID) ([]Bill, error)

	// FindByVendorInRange finds a vendor's non-void bills with invoice date in [from, to]
	FindByVendorInRange(ctx context.Context, businessID, vendorID uuid.UUID, from, to time.Time) ([]Bill, error)

	// Save creates or updates a bill
	Save(ctx context.Context, bill *Bill) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, bill *Bill) error

	// CountForBusiness counts bills for a business with optional filters
	CountForBusiness(ctx context.Context, businessID uuid.UUID, filter BillFilter) (int64, error)
}

// PaymentEntryFilter defines filtering options for payment entry queries
type PaymentEntryFilter struct {
	shared.Filter
	VendorID       *uuid.UUID
	Kind           *PaymentKind
	FromDate       *time.Time
	ToDate         *time.Time
	IncludeDeleted bool
}

// PaymentEntryRepository defines the interface for payment entry persistence
type PaymentEntryRepository interface {
	// FindByIDForBusiness finds a payment entry by ID scoped to a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*PaymentEntry, error)

	// FindVendorPayments finds undeleted vendor-linked payments for a vendor
	FindVendorPayments(ctx context.Context, businessID, vendorID uuid.UUID) ([]PaymentEntry, error)

	// FindAllForBusiness finds payment entries for a business with filtering
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter PaymentEntryFilter) ([]PaymentEntry, error)

	// Save creates or updates a payment entry
	Save(ctx context.Context, entry *PaymentEntry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, entry *PaymentEntry) error

	// CountForBusiness counts payment entries for a business
	CountForBusiness(ctx context.Context, businessID uuid.UUID, filter PaymentEntryFilter) (int64, error)
}

// AllocationRepository defines the interface for bill payment allocation
// persistence. Sum* methods consider active rows only.
type AllocationRepository interface {
	// FindActiveByPayment returns the active allocations for a payment entry
	FindActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) ([]BillPayment, error)

	// FindActiveByPaymentAndBills returns the active allocations for a payment
	// entry restricted to the given bills
	FindActiveByPaymentAndBills(ctx context.Context, businessID, paymentEntryID uuid.UUID, billIDs []uuid.UUID) ([]BillPayment, error)

	// FindActivePair returns the single active allocation for a
	// (payment, bill) pair, or nil if none exists
	FindActivePair(ctx context.Context, businessID, paymentEntryID, billID uuid.UUID) (*BillPayment, error)

	// FindByBill returns all allocations for a bill, active and voided
	FindByBill(ctx context.Context, businessID, billID uuid.UUID) ([]BillPayment, error)

	// SumActiveByBill returns the active applied sum for one bill
	SumActiveByBill(ctx context.Context, businessID, billID uuid.UUID) (valueobject.Money, error)

	// SumActiveByBills returns active applied sums keyed by bill ID
	SumActiveByBills(ctx context.Context, businessID uuid.UUID, billIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error)

	// SumActiveByPayment returns the active allocated sum for one payment entry
	SumActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (valueobject.Money, error)

	// SumActiveByPayments returns active allocated sums keyed by payment entry ID
	SumActiveByPayments(ctx context.Context, businessID uuid.UUID, paymentEntryIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error)

	// HasActiveByBill reports whether any active allocation references the bill
	HasActiveByBill(ctx context.Context, businessID, billID uuid.UUID) (bool, error)

	// HasActiveByPayment reports whether any active allocation references the payment entry
	HasActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (bool, error)

	// Save creates or updates an allocation row
	Save(ctx context.Context, allocation *BillPayment) error
}

// ClosedPeriodRepository defines the interface for closed period persistence
type ClosedPeriodRepository interface {
	// Exists reports whether the business has closed the given YYYY-MM month
	Exists(ctx context.Context, businessID uuid.UUID, month string) (bool, error)

	// Save records a closed month; saving an already-closed month is a no-op
	Save(ctx context.Context, period *ClosedPeriod) error

	// Delete reopens a month
	Delete(ctx context.Context, businessID uuid.UUID, month string) error

	// ListForBusiness returns all closed months for a business
	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]ClosedPeriod, error)
}

// VendorRepository defines the interface for vendor persistence
type VendorRepository interface {
	// FindByIDForBusiness finds a vendor by ID scoped to a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Vendor, error)

	// ExistsForBusiness reports whether the vendor exists in the business
	ExistsForBusiness(ctx context.Context, businessID, id uuid.UUID) (bool, error)

	// FindAllForBusiness lists vendors for a business
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]Vendor, error)

	// Save creates or updates a vendor
	Save(ctx context.Context, vendor *Vendor) error
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByName finds a category by name for a business, nil if absent
	FindByName(ctx context.Context, businessID uuid.UUID, name string) (*Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error
}

// ActivityLogRepository appends audit records
type ActivityLogRepository interface {
	// Append stores an audit record
	Append(ctx context.Context, entry *ActivityLog) error

	// ListForBusiness returns recent audit records, newest first
	ListForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]ActivityLog, error)
}

// Repositories bundles the repositories a single transaction operates on.
// A TransactionManager hands a transaction-scoped set to its callback.
type Repositories struct {
	Bills         BillRepository
	Payments      PaymentEntryRepository
	Allocations   AllocationRepository
	ClosedPeriods ClosedPeriodRepository
	Vendors       VendorRepository
	Categories    CategoryRepository
}

// TransactionManager runs a read-validate-write sequence atomically. The
// repositories passed to fn are bound to one database transaction with
// isolation strong enough that allocation sums re-read inside fn cannot be
// jointly over-applied by a concurrent caller.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
