package payables

import (
	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// Event types emitted by the payables domain
const (
	EventTypeBillCreated          = "payables.bill.created"
	EventTypeBillUpdated          = "payables.bill.updated"
	EventTypeBillVoided           = "payables.bill.voided"
	EventTypeVendorPaymentCreated = "payables.payment.created"
	EventTypePaymentUpdated       = "payables.payment.updated"
	EventTypePaymentApplied       = "payables.payment.applied"
	EventTypePaymentUnapplied     = "payables.payment.unapplied"
	EventTypePaymentDeleted       = "payables.payment.deleted"
	EventTypePeriodClosed         = "payables.period.closed"
	EventTypePeriodReopened       = "payables.period.reopened"
)

// BillCreatedEvent is emitted when a bill is created
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	VendorID uuid.UUID `json:"vendor_id"`
	Amount   int64     `json:"amount"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, "Bill", b.ID, b.BusinessID),
		VendorID:        b.VendorID,
		Amount:          b.Amount.MinorUnits(),
	}
}

// BillVoidedEvent is emitted when a bill is voided
type BillVoidedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewBillVoidedEvent creates a new BillVoidedEvent
func NewBillVoidedEvent(b *Bill, reason string) *BillVoidedEvent {
	return &BillVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillVoided, "Bill", b.ID, b.BusinessID),
		Reason:          reason,
	}
}

// VendorPaymentCreatedEvent is emitted when a vendor payment entry is created
type VendorPaymentCreatedEvent struct {
	shared.BaseDomainEvent
	VendorID uuid.UUID `json:"vendor_id"`
	Amount   int64     `json:"amount"`
}

// NewVendorPaymentCreatedEvent creates a new VendorPaymentCreatedEvent
func NewVendorPaymentCreatedEvent(p *PaymentEntry) *VendorPaymentCreatedEvent {
	var vendorID uuid.UUID
	if p.VendorID != nil {
		vendorID = *p.VendorID
	}
	return &VendorPaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorPaymentCreated, "PaymentEntry", p.ID, p.BusinessID),
		VendorID:        vendorID,
		Amount:          p.Amount.MinorUnits(),
	}
}

// PaymentDeletedEvent is emitted when a payment entry is soft deleted
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(p *PaymentEntry, reason string) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, "PaymentEntry", p.ID, p.BusinessID),
		Reason:          reason,
	}
}
