package payables

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// BillApplication is one (bill, amount) pair in an apply batch
type BillApplication struct {
	BillID uuid.UUID
	Amount valueobject.Money
}

// ApplyResult reports the active allocation rows after an apply batch
type ApplyResult struct {
	PaymentEntryID uuid.UUID            `json:"payment_entry_id"`
	Allocations    []domain.BillPayment `json:"allocations"`
}

// AllocationService applies payments to bills and reverses those
// applications. Every mutation runs the full read-validate-write sequence
// inside one transaction: conservation sums are re-read inside it so
// concurrent callers cannot jointly over-apply a bill or a payment, and a
// batch either lands whole or not at all.
type AllocationService struct {
	tx     domain.TransactionManager
	guard  *PeriodGuard
	audit  *ActivityLogger
	logger *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	tx domain.TransactionManager,
	guard *PeriodGuard,
	audit *ActivityLogger,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{tx: tx, guard: guard, audit: audit, logger: logger}
}

// Apply applies a payment entry to one or more bills. Re-applying an
// existing (payment, bill) pair replaces the active row's amount rather
// than stacking a second row.
func (s *AllocationService) Apply(
	ctx context.Context,
	businessID, actorID, paymentEntryID uuid.UUID,
	applications []BillApplication,
) (*ApplyResult, error) {
	if len(applications) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one bill application is required")
	}
	seen := make(map[uuid.UUID]bool, len(applications))
	requested := valueobject.Zero
	for _, app := range applications {
		if app.BillID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "Bill ID cannot be empty")
		}
		if seen[app.BillID] {
			return nil, shared.NewDomainError("DUPLICATE_BILL_ID",
				fmt.Sprintf("Bill %s appears more than once in the batch", app.BillID))
		}
		seen[app.BillID] = true
		if !app.Amount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
		}
		requested = requested.Add(app.Amount)
	}

	billIDs := make([]uuid.UUID, len(applications))
	for i, app := range applications {
		billIDs[i] = app.BillID
	}

	var result *ApplyResult
	var entryForAudit *domain.PaymentEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		entry, err := repos.Payments.FindByIDForBusiness(ctx, businessID, paymentEntryID)
		if err != nil {
			return fmt.Errorf("failed to load payment entry: %w", err)
		}
		if entry == nil || entry.IsDeleted() {
			return shared.NewDomainError("NOT_FOUND", "Payment entry not found")
		}
		if !entry.IsVendorPayment() || !entry.IsVendorLinked() {
			return shared.NewDomainError("PAYMENT_NOT_VENDOR_LINKED",
				"Only vendor-linked payments can be applied to bills")
		}

		if err := s.guard.CheckNotClosed(ctx, businessID, entry.EntryDate); err != nil {
			return err
		}

		capacity := entry.Capacity()
		vendorID := *entry.VendorID

		bills, err := repos.Bills.FindByIDs(ctx, businessID, billIDs)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		billByID := make(map[uuid.UUID]*domain.Bill, len(bills))
		for i := range bills {
			billByID[bills[i].ID] = &bills[i]
		}
		for _, id := range billIDs {
			bill, ok := billByID[id]
			if !ok {
				return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Bill %s not found", id))
			}
			if bill.IsVoid() {
				return shared.NewDomainError("BILL_VOID",
					fmt.Sprintf("Bill %s is void and cannot receive applications", id))
			}
			if bill.VendorID != vendorID {
				return shared.NewDomainError("CROSS_VENDOR_APPLICATION",
					fmt.Sprintf("Bill %s belongs to a different vendor than the payment", id))
			}
		}

		existingRows, err := repos.Allocations.FindActiveByPaymentAndBills(ctx, businessID, entry.ID, billIDs)
		if err != nil {
			return fmt.Errorf("failed to load existing allocations: %w", err)
		}
		existingByBill := make(map[uuid.UUID]*domain.BillPayment, len(existingRows))
		priorInBatch := valueobject.Zero
		for i := range existingRows {
			existingByBill[existingRows[i].BillID] = &existingRows[i]
			priorInBatch = priorInBatch.Add(existingRows[i].Amount)
		}

		billSums, err := repos.Allocations.SumActiveByBills(ctx, businessID, billIDs)
		if err != nil {
			return fmt.Errorf("failed to sum bill allocations: %w", err)
		}
		for _, app := range applications {
			prior := valueobject.Zero
			if row, ok := existingByBill[app.BillID]; ok {
				prior = row.Amount
			}
			wouldBe := billSums[app.BillID].Sub(prior).Add(app.Amount)
			if wouldBe.GreaterThan(billByID[app.BillID].Amount) {
				return shared.NewDomainError("OVER_APPLY_BILL",
					fmt.Sprintf("Applying %s to bill %s would exceed its amount", app.Amount, app.BillID))
			}
		}

		paymentSum, err := repos.Allocations.SumActiveByPayment(ctx, businessID, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payment allocations: %w", err)
		}
		if paymentSum.Sub(priorInBatch).Add(requested).GreaterThan(capacity) {
			return shared.NewDomainError("OVER_APPLY_ENTRY",
				"Applications would exceed the payment's capacity")
		}

		rows := make([]domain.BillPayment, 0, len(applications))
		for _, app := range applications {
			if row, ok := existingByBill[app.BillID]; ok {
				if err := row.Reapply(app.Amount); err != nil {
					return err
				}
				if err := repos.Allocations.Save(ctx, row); err != nil {
					return fmt.Errorf("failed to save allocation: %w", err)
				}
				rows = append(rows, *row)
				continue
			}
			row, err := domain.NewBillPayment(businessID, entry.AccountID, entry.ID, app.BillID, app.Amount, actorID)
			if err != nil {
				return err
			}
			if err := repos.Allocations.Save(ctx, row); err != nil {
				return fmt.Errorf("failed to save allocation: %w", err)
			}
			rows = append(rows, *row)
		}

		if err := RecomputeBillStatuses(ctx, repos, businessID, billIDs); err != nil {
			return err
		}
		if err := refreshEntryMemo(ctx, repos, entry); err != nil {
			return err
		}
		if err := repos.Payments.SaveWithLock(ctx, entry); err != nil {
			return fmt.Errorf("failed to save payment entry: %w", err)
		}

		entryForAudit = entry
		result = &ApplyResult{PaymentEntryID: entry.ID, Allocations: rows}
		return nil
	})
	if err != nil {
		return nil, err
	}

	auditApplications := make([]map[string]any, len(applications))
	for i, app := range applications {
		auditApplications[i] = map[string]any{"bill_id": app.BillID, "amount": app.Amount.MinorUnits()}
	}
	s.audit.Record(ctx, businessID, actorID, domain.EventTypePaymentApplied, map[string]any{
		"payment_entry_id": paymentEntryID,
		"vendor_id":        entryForAudit.VendorID,
		"applications":     auditApplications,
	}, &entryForAudit.AccountID)

	return result, nil
}

// Unapply reverses the entry's active allocations, all of them when
// billIDs is empty. Reversal flips the rows inactive with void metadata;
// nothing is deleted. Unapplying an empty selection is a no-op success.
func (s *AllocationService) Unapply(
	ctx context.Context,
	businessID, actorID, paymentEntryID uuid.UUID,
	billIDs []uuid.UUID,
	reason string,
) error {
	var reversed []uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		entry, err := repos.Payments.FindByIDForBusiness(ctx, businessID, paymentEntryID)
		if err != nil {
			return fmt.Errorf("failed to load payment entry: %w", err)
		}
		if entry == nil || entry.IsDeleted() {
			return shared.NewDomainError("NOT_FOUND", "Payment entry not found")
		}

		if err := s.guard.CheckNotClosed(ctx, businessID, entry.EntryDate); err != nil {
			return err
		}

		var selected []domain.BillPayment
		if len(billIDs) == 0 {
			selected, err = repos.Allocations.FindActiveByPayment(ctx, businessID, entry.ID)
		} else {
			selected, err = repos.Allocations.FindActiveByPaymentAndBills(ctx, businessID, entry.ID, billIDs)
		}
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}
		if len(selected) == 0 {
			return nil
		}

		affected := make([]uuid.UUID, len(selected))
		for i := range selected {
			affected[i] = selected[i].BillID
		}

		// Should already hold from apply time; rejected rather than
		// silently unwound if it ever does not.
		if entry.IsVendorLinked() {
			bills, err := repos.Bills.FindByIDs(ctx, businessID, affected)
			if err != nil {
				return fmt.Errorf("failed to load bills: %w", err)
			}
			for i := range bills {
				if bills[i].VendorID != *entry.VendorID {
					return shared.NewDomainError("CROSS_VENDOR_APPLICATION",
						fmt.Sprintf("Bill %s belongs to a different vendor than the payment", bills[i].ID))
				}
			}
		}

		for i := range selected {
			selected[i].Void(actorID, reason)
			if err := repos.Allocations.Save(ctx, &selected[i]); err != nil {
				return fmt.Errorf("failed to save allocation: %w", err)
			}
		}

		if err := RecomputeBillStatuses(ctx, repos, businessID, affected); err != nil {
			return err
		}
		if err := refreshEntryMemo(ctx, repos, entry); err != nil {
			return err
		}
		if err := repos.Payments.SaveWithLock(ctx, entry); err != nil {
			return fmt.Errorf("failed to save payment entry: %w", err)
		}

		reversed = affected
		return nil
	})
	if err != nil {
		return err
	}

	if len(reversed) > 0 {
		s.audit.Record(ctx, businessID, actorID, domain.EventTypePaymentUnapplied, map[string]any{
			"payment_entry_id": paymentEntryID,
			"bill_ids":         reversed,
			"reason":           reason,
		}, nil)
	}
	return nil
}

// UnapplyAndDelete reverses all of the entry's active allocations and then
// soft-deletes the entry itself, clearing its vendor link and reverting it
// to a generic transaction. A distinct operation: plain Unapply never
// deletes. Deleting an already-deleted entry is a no-op success.
func (s *AllocationService) UnapplyAndDelete(
	ctx context.Context,
	businessID, actorID, paymentEntryID uuid.UUID,
	reason string,
) error {
	var deletedEntry *domain.PaymentEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		entry, err := repos.Payments.FindByIDForBusiness(ctx, businessID, paymentEntryID)
		if err != nil {
			return fmt.Errorf("failed to load payment entry: %w", err)
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment entry not found")
		}
		if entry.IsDeleted() {
			return nil
		}

		if err := s.guard.CheckNotClosed(ctx, businessID, entry.EntryDate); err != nil {
			return err
		}

		active, err := repos.Allocations.FindActiveByPayment(ctx, businessID, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}
		affected := make([]uuid.UUID, len(active))
		for i := range active {
			affected[i] = active[i].BillID
			active[i].Void(actorID, reason)
			if err := repos.Allocations.Save(ctx, &active[i]); err != nil {
				return fmt.Errorf("failed to save allocation: %w", err)
			}
		}

		if err := RecomputeBillStatuses(ctx, repos, businessID, affected); err != nil {
			return err
		}

		entry.SoftDelete(actorID, reason)
		if err := repos.Payments.SaveWithLock(ctx, entry); err != nil {
			return fmt.Errorf("failed to save payment entry: %w", err)
		}

		deletedEntry = entry
		return nil
	})
	if err != nil {
		return err
	}

	if deletedEntry != nil {
		s.audit.RecordAggregateEvents(ctx, actorID, deletedEntry, nil)
	}
	return nil
}

// refreshEntryMemo recomputes the entry's synthesized memo from the bills
// it is currently applied to, oldest application first. The caller persists
// the entry.
func refreshEntryMemo(ctx context.Context, repos domain.Repositories, entry *domain.PaymentEntry) error {
	if !entry.IsVendorPayment() {
		return nil
	}

	active, err := repos.Allocations.FindActiveByPayment(ctx, entry.BusinessID, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].AppliedAt.Before(active[j].AppliedAt)
	})

	billIDs := make([]uuid.UUID, len(active))
	for i := range active {
		billIDs[i] = active[i].BillID
	}
	bills, err := repos.Bills.FindByIDs(ctx, entry.BusinessID, billIDs)
	if err != nil {
		return fmt.Errorf("failed to load bills: %w", err)
	}
	memoByBill := make(map[uuid.UUID]string, len(bills))
	for i := range bills {
		memoByBill[bills[i].ID] = bills[i].Memo
	}

	memos := make([]string, 0, len(active))
	for i := range active {
		if memo := memoByBill[active[i].BillID]; memo != "" {
			memos = append(memos, memo)
		}
	}

	entry.RefreshMemo(memos)
	return nil
}
