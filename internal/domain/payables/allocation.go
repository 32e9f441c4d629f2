package payables

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BillPayment records that part of a payment entry's capacity has been
// applied to a bill. At most one active row exists per (payment, bill)
// pair; re-applying the pair updates the active row in place. Reversal
// never deletes a row - it flips Active off and stamps void metadata, so
// the full application history is permanent.
type BillPayment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	BusinessID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	AccountID      uuid.UUID         `gorm:"type:uuid;not null"`
	PaymentEntryID uuid.UUID         `gorm:"type:uuid;not null;index:idx_bill_payments_pair"`
	BillID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_bill_payments_pair"`
	Amount         valueobject.Money `gorm:"type:bigint;not null"` // Positive minor units
	AppliedAt      time.Time         `gorm:"not null"`
	Active         bool              `gorm:"not null;default:true;index"`
	VoidedAt       *time.Time
	VoidedBy       *uuid.UUID `gorm:"type:uuid"`
	VoidReason     string     `gorm:"type:varchar(500)"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (BillPayment) TableName() string {
	return "bill_payments"
}

// NewBillPayment creates a new active allocation
func NewBillPayment(
	businessID uuid.UUID,
	accountID uuid.UUID,
	paymentEntryID uuid.UUID,
	billID uuid.UUID,
	amount valueobject.Money,
	createdBy uuid.UUID,
) (*BillPayment, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	now := time.Now()
	return &BillPayment{
		ID:             uuid.New(),
		BusinessID:     businessID,
		AccountID:      accountID,
		PaymentEntryID: paymentEntryID,
		BillID:         billID,
		Amount:         amount,
		AppliedAt:      now,
		Active:         true,
		CreatedBy:      &createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Reapply replaces the active row's amount and re-stamps AppliedAt
// (upsert-by-pair semantics)
func (a *BillPayment) Reapply(amount valueobject.Money) error {
	if !a.Active {
		return shared.NewDomainError("INVALID_STATE", "Cannot reapply an inactive allocation")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	now := time.Now()
	a.Amount = amount
	a.AppliedAt = now
	a.UpdatedAt = now
	return nil
}

// Void deactivates the allocation, stamping void metadata. The row stays
// behind as history.
func (a *BillPayment) Void(actorID uuid.UUID, reason string) {
	if !a.Active {
		return
	}
	now := time.Now()
	a.Active = false
	a.VoidedAt = &now
	a.VoidedBy = &actorID
	a.VoidReason = reason
	a.UpdatedAt = now
}
