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

// RecomputeBillStatuses is the single entry point for the status
// projection: it re-reads each bill's active applied sum and persists the
// derived status. Called with transaction-scoped repositories after every
// allocation mutation so status never drifts from the allocation ledger.
func RecomputeBillStatuses(ctx context.Context, repos domain.Repositories, businessID uuid.UUID, billIDs []uuid.UUID) error {
	if len(billIDs) == 0 {
		return nil
	}

	bills, err := repos.Bills.FindByIDs(ctx, businessID, billIDs)
	if err != nil {
		return fmt.Errorf("failed to load bills for status recompute: %w", err)
	}
	sums, err := repos.Allocations.SumActiveByBills(ctx, businessID, billIDs)
	if err != nil {
		return fmt.Errorf("failed to sum allocations for status recompute: %w", err)
	}

	for i := range bills {
		bill := &bills[i]
		appliedSum := sums[bill.ID]
		if domain.DeriveStatus(bill.IsVoid(), bill.Amount, appliedSum) == bill.Status {
			continue
		}
		bill.ApplyStatus(appliedSum)
		if err := repos.Bills.SaveWithLock(ctx, bill); err != nil {
			return fmt.Errorf("failed to persist bill status: %w", err)
		}
	}
	return nil
}

// BillService owns the bill lifecycle: create, restricted updates, void,
// and read projections with outstanding balances.
type BillService struct {
	tx     domain.TransactionManager
	repos  domain.Repositories
	guard  *PeriodGuard
	audit  *ActivityLogger
	logger *zap.Logger
}

// NewBillService creates a new BillService
func NewBillService(
	tx domain.TransactionManager,
	repos domain.Repositories,
	guard *PeriodGuard,
	audit *ActivityLogger,
	logger *zap.Logger,
) *BillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillService{tx: tx, repos: repos, guard: guard, audit: audit, logger: logger}
}

// CreateBillRequest carries the inputs for a new bill
type CreateBillRequest struct {
	BusinessID  uuid.UUID
	ActorID     uuid.UUID
	VendorID    uuid.UUID
	InvoiceDate time.Time
	DueDate     time.Time
	Amount      valueobject.Money
	Memo        string
	Terms       string
	SourceDocID *uuid.UUID
}

// CreateBill records a new vendor bill in OPEN status
func (s *BillService) CreateBill(ctx context.Context, req CreateBillRequest) (*domain.Bill, error) {
	if err := s.guard.CheckNotClosed(ctx, req.BusinessID, req.InvoiceDate); err != nil {
		return nil, err
	}

	exists, err := s.repos.Vendors.ExistsForBusiness(ctx, req.BusinessID, req.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check vendor: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError("NOT_FOUND", "Vendor not found")
	}

	bill, err := domain.NewBill(
		req.BusinessID, req.VendorID,
		req.InvoiceDate, req.DueDate,
		req.Amount, req.Memo, req.Terms, req.SourceDocID,
	)
	if err != nil {
		return nil, err
	}
	bill.SetCreatedBy(req.ActorID)

	if err := s.repos.Bills.Save(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}

	s.audit.RecordAggregateEvents(ctx, req.ActorID, bill, nil)

	return bill, nil
}

// UpdateBillRequest is a partial patch; nil fields are left unchanged
type UpdateBillRequest struct {
	BusinessID  uuid.UUID
	ActorID     uuid.UUID
	BillID      uuid.UUID
	Memo        *string
	DueDate     *time.Time
	InvoiceDate *time.Time
	Amount      *valueobject.Money
	Terms       *string
	SourceDocID *uuid.UUID
}

// touchesFrozenFields reports whether the patch touches fields that are
// frozen once any active allocation references the bill
func (r UpdateBillRequest) touchesFrozenFields() bool {
	return r.InvoiceDate != nil || r.Amount != nil || r.Terms != nil || r.SourceDocID != nil
}

// UpdateBill applies a patch to a bill. Memo and due date are always
// editable on a live bill; the remaining fields are rejected with
// BILL_HAS_APPLICATIONS while any active allocation exists. The period
// guard runs against the stored invoice date, not a caller-supplied one.
func (s *BillService) UpdateBill(ctx context.Context, req UpdateBillRequest) (*domain.Bill, error) {
	var updated *domain.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		bill, err := repos.Bills.FindByIDForBusiness(ctx, req.BusinessID, req.BillID)
		if err != nil {
			return fmt.Errorf("failed to load bill: %w", err)
		}
		if bill == nil {
			return shared.NewDomainError("NOT_FOUND", "Bill not found")
		}

		if err := s.guard.CheckNotClosed(ctx, req.BusinessID, bill.InvoiceDate); err != nil {
			return err
		}
		if req.InvoiceDate != nil {
			if err := s.guard.CheckNotClosed(ctx, req.BusinessID, *req.InvoiceDate); err != nil {
				return err
			}
		}

		if req.touchesFrozenFields() {
			hasActive, err := repos.Allocations.HasActiveByBill(ctx, req.BusinessID, bill.ID)
			if err != nil {
				return fmt.Errorf("failed to check allocations: %w", err)
			}
			if hasActive {
				return shared.NewDomainError("BILL_HAS_APPLICATIONS",
					"Only memo and due date may change while the bill has active applications")
			}

			invoiceDate := bill.InvoiceDate
			amount := bill.Amount
			terms := bill.Terms
			sourceDocID := bill.SourceDocID
			if req.InvoiceDate != nil {
				invoiceDate = *req.InvoiceDate
			}
			if req.Amount != nil {
				amount = *req.Amount
			}
			if req.Terms != nil {
				terms = *req.Terms
			}
			if req.SourceDocID != nil {
				sourceDocID = req.SourceDocID
			}
			if err := bill.UpdateUnapplied(invoiceDate, amount, terms, sourceDocID); err != nil {
				return err
			}
		}

		if req.Memo != nil {
			if err := bill.SetMemo(*req.Memo); err != nil {
				return err
			}
		}
		if req.DueDate != nil {
			if err := bill.SetDueDate(*req.DueDate); err != nil {
				return err
			}
		}

		if err := repos.Bills.SaveWithLock(ctx, bill); err != nil {
			return fmt.Errorf("failed to save bill: %w", err)
		}
		updated = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, req.BusinessID, req.ActorID, domain.EventTypeBillUpdated, map[string]any{
		"bill_id": req.BillID,
	}, nil)

	return updated, nil
}

// VoidBill voids a bill. Idempotent: voiding an already-void bill returns
// success without change. Fails with MUST_UNAPPLY_FIRST while any active
// allocation references the bill.
func (s *BillService) VoidBill(ctx context.Context, businessID, actorID, billID uuid.UUID, reason string) (*domain.Bill, error) {
	var voided *domain.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		bill, err := repos.Bills.FindByIDForBusiness(ctx, businessID, billID)
		if err != nil {
			return fmt.Errorf("failed to load bill: %w", err)
		}
		if bill == nil {
			return shared.NewDomainError("NOT_FOUND", "Bill not found")
		}
		if bill.IsVoid() {
			voided = bill
			return nil
		}

		if err := s.guard.CheckNotClosed(ctx, businessID, bill.InvoiceDate); err != nil {
			return err
		}

		hasActive, err := repos.Allocations.HasActiveByBill(ctx, businessID, bill.ID)
		if err != nil {
			return fmt.Errorf("failed to check allocations: %w", err)
		}
		if hasActive {
			return shared.NewDomainError("MUST_UNAPPLY_FIRST",
				"Unapply all payments from the bill before voiding it")
		}

		bill.Void(actorID, reason)
		if err := repos.Bills.SaveWithLock(ctx, bill); err != nil {
			return fmt.Errorf("failed to save bill: %w", err)
		}
		voided = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	// An already-void bill raised no event, so this drains nothing.
	s.audit.RecordAggregateEvents(ctx, actorID, voided, nil)

	return voided, nil
}

// BillWithBalance pairs a bill with its active applied sum and outstanding
type BillWithBalance struct {
	Bill        domain.Bill       `json:"bill"`
	AppliedSum  valueobject.Money `json:"applied_sum"`
	Outstanding valueobject.Money `json:"outstanding"`
}

// GetBill returns one bill with its applied and outstanding balances
func (s *BillService) GetBill(ctx context.Context, businessID, billID uuid.UUID) (*BillWithBalance, error) {
	bill, err := s.repos.Bills.FindByIDForBusiness(ctx, businessID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bill not found")
	}

	appliedSum, err := s.repos.Allocations.SumActiveByBill(ctx, businessID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}

	return &BillWithBalance{
		Bill:        *bill,
		AppliedSum:  appliedSum,
		Outstanding: bill.Outstanding(appliedSum),
	}, nil
}

// ListBills returns bills with balances under the given filter
func (s *BillService) ListBills(ctx context.Context, businessID uuid.UUID, filter domain.BillFilter) (shared.Paginated[BillWithBalance], error) {
	var empty shared.Paginated[BillWithBalance]

	bills, err := s.repos.Bills.FindAllForBusiness(ctx, businessID, filter)
	if err != nil {
		return empty, fmt.Errorf("failed to list bills: %w", err)
	}
	total, err := s.repos.Bills.CountForBusiness(ctx, businessID, filter)
	if err != nil {
		return empty, fmt.Errorf("failed to count bills: %w", err)
	}

	ids := make([]uuid.UUID, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	sums, err := s.repos.Allocations.SumActiveByBills(ctx, businessID, ids)
	if err != nil {
		return empty, fmt.Errorf("failed to sum allocations: %w", err)
	}

	items := make([]BillWithBalance, len(bills))
	for i := range bills {
		applied := sums[bills[i].ID]
		items[i] = BillWithBalance{
			Bill:        bills[i],
			AppliedSum:  applied,
			Outstanding: bills[i].Outstanding(applied),
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

// ListAllocationsForBill returns a bill's allocation history, active and
// voided rows alike
func (s *BillService) ListAllocationsForBill(ctx context.Context, businessID, billID uuid.UUID) ([]domain.BillPayment, error) {
	allocations, err := s.repos.Allocations.FindByBill(ctx, businessID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	return allocations, nil
}
