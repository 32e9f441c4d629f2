package payables

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BillStatus represents the status of a vendor bill
type BillStatus string

const (
	BillStatusOpen    BillStatus = "OPEN"    // No active applications
	BillStatusPartial BillStatus = "PARTIAL" // Partially applied, 0 < applied < amount
	BillStatusPaid    BillStatus = "PAID"    // Fully applied
	BillStatusVoid    BillStatus = "VOID"    // Voided; terminal
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusOpen, BillStatusPartial, BillStatusPaid, BillStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// Bill represents an obligation owed to a vendor.
// Status is always a projection of (voided, amount, active applied sum);
// it is never set directly outside DeriveStatus except to VOID.
type Bill struct {
	shared.BusinessAggregateRoot
	VendorID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	InvoiceDate time.Time         `gorm:"not null"`
	DueDate     time.Time         `gorm:"not null;index"`
	Amount      valueobject.Money `gorm:"type:bigint;not null"` // Face amount, positive minor units
	Status      BillStatus        `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Memo        string            `gorm:"type:varchar(500)"`
	Terms       string            `gorm:"type:varchar(100)"`
	SourceDocID *uuid.UUID        `gorm:"type:uuid"` // Optional linked source document
	VoidedAt    *time.Time
	VoidedBy    *uuid.UUID `gorm:"type:uuid"`
	VoidReason  string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Bill) TableName() string {
	return "bills"
}

// NewBill creates a new bill in OPEN status
func NewBill(
	businessID uuid.UUID,
	vendorID uuid.UUID,
	invoiceDate time.Time,
	dueDate time.Time,
	amount valueobject.Money,
	memo string,
	terms string,
	sourceDocID *uuid.UUID,
) (*Bill, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bill amount must be positive")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Invoice date is required")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Due date is required")
	}

	b := &Bill{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		VendorID:              vendorID,
		InvoiceDate:           invoiceDate,
		DueDate:               dueDate,
		Amount:                amount,
		Status:                BillStatusOpen,
		Memo:                  memo,
		Terms:                 terms,
		SourceDocID:           sourceDocID,
	}

	b.AddDomainEvent(NewBillCreatedEvent(b))

	return b, nil
}

// DeriveStatus computes the status projection for a bill with the given
// active applied sum. The appliedSum > amount branch is defensive only:
// the allocation engine validates conservation before any write, so it
// should never be reached.
func DeriveStatus(voided bool, amount, appliedSum valueobject.Money) BillStatus {
	if voided {
		return BillStatusVoid
	}
	if !appliedSum.IsPositive() {
		return BillStatusOpen
	}
	if appliedSum.Equals(amount) {
		return BillStatusPaid
	}
	if appliedSum.GreaterThan(amount) {
		return BillStatusOpen
	}
	return BillStatusPartial
}

// ApplyStatus recomputes and stores the status projection
func (b *Bill) ApplyStatus(appliedSum valueobject.Money) {
	b.Status = DeriveStatus(b.IsVoid(), b.Amount, appliedSum)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}

// Outstanding returns the face amount minus the given active applied sum
func (b *Bill) Outstanding(appliedSum valueobject.Money) valueobject.Money {
	return b.Amount.Sub(appliedSum)
}

// IsVoid returns true if the bill has been voided
func (b *Bill) IsVoid() bool {
	return b.VoidedAt != nil
}

// Void marks the bill void. Idempotent: voiding an already-void bill is a
// no-op success. Callers must first verify no active allocation references
// the bill.
func (b *Bill) Void(actorID uuid.UUID, reason string) {
	if b.IsVoid() {
		return
	}
	now := time.Now()
	b.VoidedAt = &now
	b.VoidedBy = &actorID
	b.VoidReason = reason
	b.Status = BillStatusVoid
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBillVoidedEvent(b, reason))
}

// SetMemo updates the memo; permitted even when applications exist
func (b *Bill) SetMemo(memo string) error {
	if b.IsVoid() {
		return shared.NewDomainError("BILL_VOID", "Cannot modify a void bill")
	}
	b.Memo = memo
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// SetDueDate updates the due date; permitted even when applications exist
func (b *Bill) SetDueDate(dueDate time.Time) error {
	if b.IsVoid() {
		return shared.NewDomainError("BILL_VOID", "Cannot modify a void bill")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Due date is required")
	}
	b.DueDate = dueDate
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// UpdateUnapplied rewrites the fields that are frozen once any active
// application exists. The caller (bill service) is responsible for
// verifying that no active allocation references the bill.
func (b *Bill) UpdateUnapplied(invoiceDate time.Time, amount valueobject.Money, terms string, sourceDocID *uuid.UUID) error {
	if b.IsVoid() {
		return shared.NewDomainError("BILL_VOID", "Cannot modify a void bill")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Bill amount must be positive")
	}
	if invoiceDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Invoice date is required")
	}
	b.InvoiceDate = invoiceDate
	b.Amount = amount
	b.Terms = terms
	b.SourceDocID = sourceDocID
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}
