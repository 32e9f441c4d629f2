package payables

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// PaymentService creates and edits the ledger-transaction representation
// of vendor payments. The allocation engine owns everything that touches
// the allocation ledger.
type PaymentService struct {
	tx     domain.TransactionManager
	repos  domain.Repositories
	guard  *PeriodGuard
	audit  *ActivityLogger
	logger *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	tx domain.TransactionManager,
	repos domain.Repositories,
	guard *PeriodGuard,
	audit *ActivityLogger,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{tx: tx, repos: repos, guard: guard, audit: audit, logger: logger}
}

// CreateVendorPaymentRequest carries the inputs for a new vendor payment.
// Amount is a positive count of minor units paid out.
type CreateVendorPaymentRequest struct {
	BusinessID uuid.UUID
	ActorID    uuid.UUID
	AccountID  uuid.UUID
	VendorID   uuid.UUID
	EntryDate  time.Time
	Amount     valueobject.Money
	Method     domain.PaymentMethod
	Memo       string
}

// CreateVendorPayment records a vendor payment as a negative (outflow)
// ledger transaction. The business's "Purchase" category is assigned,
// created first if missing.
func (s *PaymentService) CreateVendorPayment(ctx context.Context, req CreateVendorPaymentRequest) (*domain.PaymentEntry, error) {
	if err := s.guard.CheckNotClosed(ctx, req.BusinessID, req.EntryDate); err != nil {
		return nil, err
	}

	exists, err := s.repos.Vendors.ExistsForBusiness(ctx, req.BusinessID, req.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check vendor: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError("NOT_FOUND", "Vendor not found")
	}

	var entry *domain.PaymentEntry
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		category, err := repos.Categories.FindByName(ctx, req.BusinessID, domain.PurchaseCategoryName)
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			category, err = domain.NewCategory(req.BusinessID, domain.PurchaseCategoryName)
			if err != nil {
				return err
			}
			if err := repos.Categories.Save(ctx, category); err != nil {
				return fmt.Errorf("failed to save category: %w", err)
			}
		}

		entry, err = domain.NewVendorPayment(
			req.BusinessID, req.AccountID, req.VendorID,
			req.EntryDate, req.Amount, req.Method, req.Memo,
		)
		if err != nil {
			return err
		}
		entry.SetCreatedBy(req.ActorID)
		entry.SetCategory(category.ID)

		if err := repos.Payments.Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save payment entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordAggregateEvents(ctx, req.ActorID, entry, &req.AccountID)

	return entry, nil
}

// UpdatePaymentRequest is a partial patch; nil fields are left unchanged.
// Amount, when set, is a positive count of minor units.
type UpdatePaymentRequest struct {
	BusinessID     uuid.UUID
	ActorID        uuid.UUID
	PaymentEntryID uuid.UUID
	Memo           *string
	AccountID      *uuid.UUID
	VendorID       *uuid.UUID
	EntryDate      *time.Time
	Amount         *valueobject.Money
	Method         *domain.PaymentMethod
}

// touchesImmutableFields reports whether the patch touches fields frozen
// once the entry has any active allocation
func (r UpdatePaymentRequest) touchesImmutableFields() bool {
	return r.AccountID != nil || r.VendorID != nil || r.Amount != nil || r.Method != nil || r.EntryDate != nil
}

// UpdatePayment applies a patch to a payment entry. Memo edits are always
// legal; everything else fails with APPLIED_PAYMENT_IMMUTABLE while any
// active allocation references the entry.
func (s *PaymentService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*domain.PaymentEntry, error) {
	var updated *domain.PaymentEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		entry, err := repos.Payments.FindByIDForBusiness(ctx, req.BusinessID, req.PaymentEntryID)
		if err != nil {
			return fmt.Errorf("failed to load payment entry: %w", err)
		}
		if entry == nil || entry.IsDeleted() {
			return shared.NewDomainError("NOT_FOUND", "Payment entry not found")
		}

		if err := s.guard.CheckNotClosed(ctx, req.BusinessID, entry.EntryDate); err != nil {
			return err
		}
		if req.EntryDate != nil {
			if err := s.guard.CheckNotClosed(ctx, req.BusinessID, *req.EntryDate); err != nil {
				return err
			}
		}

		if req.touchesImmutableFields() {
			hasActive, err := repos.Allocations.HasActiveByPayment(ctx, req.BusinessID, entry.ID)
			if err != nil {
				return fmt.Errorf("failed to check allocations: %w", err)
			}
			if hasActive {
				return shared.NewDomainError("APPLIED_PAYMENT_IMMUTABLE",
					"Amount, vendor, account, kind and method are frozen while the payment has active applications")
			}

			accountID := entry.AccountID
			vendorID := uuid.Nil
			if entry.VendorID != nil {
				vendorID = *entry.VendorID
			}
			entryDate := entry.EntryDate
			amount := entry.Capacity()
			method := entry.Method
			if req.AccountID != nil {
				accountID = *req.AccountID
			}
			if req.VendorID != nil {
				vendorID = *req.VendorID
			}
			if req.EntryDate != nil {
				entryDate = *req.EntryDate
			}
			if req.Amount != nil {
				amount = *req.Amount
			}
			if req.Method != nil {
				method = *req.Method
			}
			if err := entry.UpdateUnapplied(accountID, vendorID, entryDate, amount, method); err != nil {
				return err
			}
		}

		if req.Memo != nil {
			entry.SetMemo(*req.Memo)
		}

		if err := repos.Payments.SaveWithLock(ctx, entry); err != nil {
			return fmt.Errorf("failed to save payment entry: %w", err)
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, req.BusinessID, req.ActorID, domain.EventTypePaymentUpdated, map[string]any{
		"payment_entry_id": req.PaymentEntryID,
	}, nil)

	return updated, nil
}

// PaymentWithApplied pairs a payment entry with its active allocated sum
// and remaining unapplied capacity
type PaymentWithApplied struct {
	Entry     domain.PaymentEntry `json:"entry"`
	Applied   valueobject.Money   `json:"applied"`
	Unapplied valueobject.Money   `json:"unapplied"`
}

// GetPayment returns one payment entry with its applied and unapplied sums
func (s *PaymentService) GetPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (*PaymentWithApplied, error) {
	entry, err := s.repos.Payments.FindByIDForBusiness(ctx, businessID, paymentEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment entry: %w", err)
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment entry not found")
	}

	applied, err := s.repos.Allocations.SumActiveByPayment(ctx, businessID, paymentEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}

	return &PaymentWithApplied{
		Entry:     *entry,
		Applied:   applied,
		Unapplied: entry.Capacity().Sub(applied),
	}, nil
}

// ListPayments returns payment entries with applied sums under the filter
func (s *PaymentService) ListPayments(ctx context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) (shared.Paginated[PaymentWithApplied], error) {
	var empty shared.Paginated[PaymentWithApplied]

	entries, err := s.repos.Payments.FindAllForBusiness(ctx, businessID, filter)
	if err != nil {
		return empty, fmt.Errorf("failed to list payment entries: %w", err)
	}
	total, err := s.repos.Payments.CountForBusiness(ctx, businessID, filter)
	if err != nil {
		return empty, fmt.Errorf("failed to count payment entries: %w", err)
	}

	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}
	sums, err := s.repos.Allocations.SumActiveByPayments(ctx, businessID, ids)
	if err != nil {
		return empty, fmt.Errorf("failed to sum allocations: %w", err)
	}

	items := make([]PaymentWithApplied, len(entries))
	for i := range entries {
		applied := sums[entries[i].ID]
		items[i] = PaymentWithApplied{
			Entry:     entries[i],
			Applied:   applied,
			Unapplied: entries[i].Capacity().Sub(applied),
		}
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = len(items)
		if pageSize == 0 {
			pageSize = 1
		}
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}
