package payables

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// PaymentKind discriminates a vendor payment from a general ledger transaction
type PaymentKind string

const (
	PaymentKindVendor  PaymentKind = "VENDOR_PAYMENT"
	PaymentKindGeneral PaymentKind = "GENERAL"
)

// IsValid checks if the kind is a valid PaymentKind
func (k PaymentKind) IsValid() bool {
	return k == PaymentKindVendor || k == PaymentKindGeneral
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer,
		PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// DefaultVendorPaymentMemo is the bare memo a vendor payment reverts to
// when nothing is applied and no base memo was given.
const DefaultVendorPaymentMemo = "Vendor payment"

// memoSuffixMarker separates the caller's base memo from the synthesized
// list of applied bills. Everything after the marker is rewritten on every
// refresh, so the refresh is idempotent.
const memoSuffixMarker = " | applied to: "

// PaymentEntry represents a signed ledger transaction for money paid out,
// optionally linked to a vendor. Outflows are stored negative; the payable
// capacity of an entry is the absolute amount and never changes once any
// allocation references it.
type PaymentEntry struct {
	shared.BusinessAggregateRoot
	AccountID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	VendorID   *uuid.UUID        `gorm:"type:uuid;index"` // nil = unlinked payment
	CategoryID *uuid.UUID        `gorm:"type:uuid"`
	Kind       PaymentKind       `gorm:"type:varchar(20);not null;default:'GENERAL';index"`
	Method     PaymentMethod     `gorm:"type:varchar(20);not null;default:'OTHER'"`
	EntryDate  time.Time         `gorm:"not null;index"`
	Amount     valueobject.Money `gorm:"type:bigint;not null"` // Signed; negative = outflow
	Memo       string            `gorm:"type:varchar(500)"`
	DeletedAt  *time.Time        // Soft-delete marker
	DeletedBy  *uuid.UUID        `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentEntry) TableName() string {
	return "payment_entries"
}

// NewVendorPayment creates a vendor payment entry. The amount argument is a
// positive count of minor units paid out; it is stored as a negative
// (outflow) signed amount.
func NewVendorPayment(
	businessID uuid.UUID,
	accountID uuid.UUID,
	vendorID uuid.UUID,
	entryDate time.Time,
	amount valueobject.Money,
	method PaymentMethod,
	memo string,
) (*PaymentEntry, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be a positive count of minor units")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}

	p := &PaymentEntry{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		AccountID:             accountID,
		VendorID:              &vendorID,
		Kind:                  PaymentKindVendor,
		Method:                method,
		EntryDate:             entryDate,
		Amount:                amount.Neg(),
		Memo:                  memo,
	}

	p.AddDomainEvent(NewVendorPaymentCreatedEvent(p))

	return p, nil
}

// Capacity returns the payable capacity: the absolute amount
func (p *PaymentEntry) Capacity() valueobject.Money {
	return p.Amount.Abs()
}

// IsVendorPayment returns true if the entry is a vendor payment
func (p *PaymentEntry) IsVendorPayment() bool {
	return p.Kind == PaymentKindVendor
}

// IsVendorLinked returns true if the entry is linked to a vendor
func (p *PaymentEntry) IsVendorLinked() bool {
	return p.VendorID != nil && *p.VendorID != uuid.Nil
}

// IsDeleted returns true if the entry has been soft deleted
func (p *PaymentEntry) IsDeleted() bool {
	return p.DeletedAt != nil
}

// SetCategory assigns the expense category
func (p *PaymentEntry) SetCategory(categoryID uuid.UUID) {
	p.CategoryID = &categoryID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SoftDelete marks the entry deleted, clears the vendor link and reverts
// the kind to a generic transaction. Idempotent: deleting an already
// deleted entry is a no-op.
func (p *PaymentEntry) SoftDelete(actorID uuid.UUID, reason string) {
	if p.IsDeleted() {
		return
	}
	now := time.Now()
	p.DeletedAt = &now
	p.DeletedBy = &actorID
	p.VendorID = nil
	p.Kind = PaymentKindGeneral
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentDeletedEvent(p, reason))
}

// UpdateUnapplied rewrites the fields that become immutable once any active
// allocation references the entry. The amount argument is a positive count
// of minor units, stored negative like NewVendorPayment. The caller
// (payment service) verifies no active allocation exists first.
func (p *PaymentEntry) UpdateUnapplied(
	accountID uuid.UUID,
	vendorID uuid.UUID,
	entryDate time.Time,
	amount valueobject.Money,
	method PaymentMethod,
) error {
	if p.IsDeleted() {
		return shared.NewDomainError("NOT_FOUND", "Payment entry has been deleted")
	}
	if accountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if vendorID == uuid.Nil {
		return shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be a positive count of minor units")
	}
	if entryDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Payment date is required")
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	p.AccountID = accountID
	p.VendorID = &vendorID
	p.EntryDate = entryDate
	p.Amount = amount.Neg()
	p.Method = method
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetMemo replaces the memo verbatim. Memo edits remain legal on applied
// payments; the allocation engine uses RefreshMemo instead.
func (p *PaymentEntry) SetMemo(memo string) {
	p.Memo = memo
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// RefreshMemo recomputes the synthesized memo from the memos of the bills
// currently applied to this entry. Safe to call repeatedly.
func (p *PaymentEntry) RefreshMemo(appliedBillMemos []string) {
	if !p.IsVendorPayment() {
		return
	}
	p.Memo = SynthesizeMemo(p.Memo, appliedBillMemos)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SynthesizeMemo builds a vendor payment memo from a base memo plus the
// memos of up to three applied bills ("+N more" beyond three). Any
// previously synthesized suffix in current is stripped first, so repeated
// application is idempotent. With no applied bills and an empty or default
// base, the memo reverts to the bare default.
func SynthesizeMemo(current string, appliedBillMemos []string) string {
	base := current
	if idx := strings.Index(base, memoSuffixMarker); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)

	if len(appliedBillMemos) == 0 {
		if base == "" || base == DefaultVendorPaymentMemo {
			return DefaultVendorPaymentMemo
		}
		return base
	}

	if base == "" {
		base = DefaultVendorPaymentMemo
	}

	shown := appliedBillMemos
	extra := 0
	if len(shown) > 3 {
		extra = len(shown) - 3
		shown = shown[:3]
	}
	suffix := strings.Join(shown, ", ")
	if extra > 0 {
		suffix = fmt.Sprintf("%s +%d more", suffix, extra)
	}
	return base + memoSuffixMarker + suffix
}
