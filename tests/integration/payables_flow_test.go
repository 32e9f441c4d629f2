// Package integration provides end-to-end payables flow tests against a
// real PostgreSQL database.
package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"github.com/ledgerline/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// domainErrorCode extracts the code from a domain error, or "" otherwise
func domainErrorCode(err error) string {
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		return derr.Code
	}
	return ""
}

// PayablesTestSetup wires the full application stack over a containerized
// PostgreSQL instance, the same way cmd/server does in production.
type PayablesTestSetup struct {
	DB *TestDB

	BillService       *payablesapp.BillService
	PaymentService    *payablesapp.PaymentService
	AllocationService *payablesapp.AllocationService
	VendorService     *payablesapp.VendorService
	AgingService      *payablesapp.AgingService
	PeriodGuard       *payablesapp.PeriodGuard
	ActivityLogger    *payablesapp.ActivityLogger

	BusinessID uuid.UUID
	ActorID    uuid.UUID
	AccountID  uuid.UUID
}

func newPayablesTestSetup(t *testing.T) *PayablesTestSetup {
	t.Helper()

	testDB := NewTestDB(t)
	log := zap.NewNop()

	repos := persistence.NewRepositories(testDB.DB)
	tx := persistence.NewGormTransactionManager(testDB.DB)
	audit := payablesapp.NewActivityLogger(persistence.NewGormActivityLogRepository(testDB.DB), log)
	guard := payablesapp.NewPeriodGuard(repos.ClosedPeriods, nil, audit, log)

	return &PayablesTestSetup{
		DB:                testDB,
		BillService:       payablesapp.NewBillService(tx, repos, guard, audit, log),
		PaymentService:    payablesapp.NewPaymentService(tx, repos, guard, audit, log),
		AllocationService: payablesapp.NewAllocationService(tx, guard, audit, log),
		VendorService:     payablesapp.NewVendorService(repos, log),
		AgingService:      payablesapp.NewAgingService(repos),
		PeriodGuard:       guard,
		ActivityLogger:    audit,
		BusinessID:        uuid.New(),
		ActorID:           uuid.New(),
		AccountID:         uuid.New(),
	}
}

func (s *PayablesTestSetup) createVendor(t *testing.T, name string) *domain.Vendor {
	t.Helper()
	vendor, err := s.VendorService.CreateVendor(context.Background(), s.BusinessID, s.ActorID, name, "")
	require.NoError(t, err)
	return vendor
}

func (s *PayablesTestSetup) createBill(t *testing.T, vendorID uuid.UUID, amount int64, invoiceDate, dueDate time.Time) *domain.Bill {
	t.Helper()
	bill, err := s.BillService.CreateBill(context.Background(), payablesapp.CreateBillRequest{
		BusinessID:  s.BusinessID,
		ActorID:     s.ActorID,
		VendorID:    vendorID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Amount:      valueobject.FromMinorUnits(amount),
	})
	require.NoError(t, err)
	return bill
}

func (s *PayablesTestSetup) createPayment(t *testing.T, vendorID uuid.UUID, amount int64, entryDate time.Time) *domain.PaymentEntry {
	t.Helper()
	entry, err := s.PaymentService.CreateVendorPayment(context.Background(), payablesapp.CreateVendorPaymentRequest{
		BusinessID: s.BusinessID,
		ActorID:    s.ActorID,
		AccountID:  s.AccountID,
		VendorID:   vendorID,
		EntryDate:  entryDate,
		Amount:     valueobject.FromMinorUnits(amount),
		Method:     domain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	return entry
}

func TestPayablesLifecycleFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newPayablesTestSetup(t)
	ctx := context.Background()

	vendor := setup.createVendor(t, "Acme Supplies")
	invoiceDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	dueDate := invoiceDate.AddDate(0, 1, 0)

	bill := setup.createBill(t, vendor.ID, 10000, invoiceDate, dueDate)
	payment := setup.createPayment(t, vendor.ID, 10000, invoiceDate.AddDate(0, 0, 5))

	// Vendor payments are stored as negative outflows
	assert.Equal(t, int64(-10000), payment.Amount.MinorUnits())
	assert.Equal(t, domain.PaymentKindVendor, payment.Kind)

	t.Run("partial application moves the bill to PARTIAL", func(t *testing.T) {
		result, err := setup.AllocationService.Apply(ctx, setup.BusinessID, setup.ActorID, payment.ID,
			[]payablesapp.BillApplication{{BillID: bill.ID, Amount: valueobject.FromMinorUnits(6000)}})
		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, int64(6000), result.Allocations[0].Amount.MinorUnits())

		got, err := setup.BillService.GetBill(ctx, setup.BusinessID, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BillStatusPartial, got.Bill.Status)
		assert.Equal(t, int64(6000), got.AppliedSum.MinorUnits())
		assert.Equal(t, int64(4000), got.Outstanding.MinorUnits())

		entry, err := setup.PaymentService.GetPayment(ctx, setup.BusinessID, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), entry.Applied.MinorUnits())
		assert.Equal(t, int64(4000), entry.Unapplied.MinorUnits())
	})

	t.Run("applying the remainder pays the bill in full", func(t *testing.T) {
		_, err := setup.AllocationService.Apply(ctx, setup.BusinessID, setup.ActorID, payment.ID,
			[]payablesapp.BillApplication{{BillID: bill.ID, Amount: valueobject.FromMinorUnits(10000)}})
		require.NoError(t, err)

		got, err := setup.BillService.GetBill(ctx, setup.BusinessID, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BillStatusPaid, got.Bill.Status)
		assert.Equal(t, int64(0), got.Outstanding.MinorUnits())
	})

	t.Run("over-application is rejected", func(t *testing.T) {
		extra := setup.createPayment(t, vendor.ID, 5000, invoiceDate.AddDate(0, 0, 6))
		_, err := setup.AllocationService.Apply(ctx, setup.BusinessID, setup.ActorID, extra.ID,
			[]payablesapp.BillApplication{{BillID: bill.ID, Amount: valueobject.FromMinorUnits(1)}})
		require.Error(t, err)
		assert.Equal(t, "OVER_APPLY_BILL", domainErrorCode(err))
	})

	t.Run("unapply reverses the allocation and reopens the bill", func(t *testing.T) {
		err := setup.AllocationService.Unapply(ctx, setup.BusinessID, setup.ActorID, payment.ID, nil, "entered in error")
		require.NoError(t, err)

		got, err := setup.BillService.GetBill(ctx, setup.BusinessID, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BillStatusOpen, got.Bill.Status)
		assert.Equal(t, int64(0), got.AppliedSum.MinorUnits())

		// The voided allocation rows remain as history
		allocations, err := setup.BillService.ListAllocationsForBill(ctx, setup.BusinessID, bill.ID)
		require.NoError(t, err)
		require.NotEmpty(t, allocations)
		for _, a := range allocations {
			assert.False(t, a.Active)
		}
	})

	t.Run("delete soft-deletes the payment after unapplying", func(t *testing.T) {
		err := setup.AllocationService.UnapplyAndDelete(ctx, setup.BusinessID, setup.ActorID, payment.ID, "duplicate entry")
		require.NoError(t, err)

		listed, err := setup.PaymentService.ListPayments(ctx, setup.BusinessID, domain.PaymentEntryFilter{})
		require.NoError(t, err)
		for _, item := range listed.Items {
			assert.NotEqual(t, payment.ID, item.Entry.ID)
		}
	})

	t.Run("activity log recorded the flow", func(t *testing.T) {
		entries, err := setup.ActivityLogger.List(ctx, setup.BusinessID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.NotEmpty(t, entries)

		seen := make(map[string]bool)
		for _, e := range entries {
			seen[e.EventType] = true
			assert.Equal(t, setup.BusinessID, e.BusinessID)
		}
		assert.True(t, seen[domain.EventTypeBillCreated])
		assert.True(t, seen[domain.EventTypePaymentApplied])
		assert.True(t, seen[domain.EventTypePaymentUnapplied])
	})
}

func TestPayablesClosedPeriodFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newPayablesTestSetup(t)
	ctx := context.Background()

	vendor := setup.createVendor(t, "Bolt Freight")

	require.NoError(t, setup.PeriodGuard.ClosePeriod(ctx, setup.BusinessID, "2026-02", setup.ActorID))

	_, err := setup.BillService.CreateBill(ctx, payablesapp.CreateBillRequest{
		BusinessID:  setup.BusinessID,
		ActorID:     setup.ActorID,
		VendorID:    vendor.ID,
		InvoiceDate: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:      valueobject.FromMinorUnits(10000),
	})
	require.Error(t, err)
	assert.Equal(t, "CLOSED_PERIOD", domainErrorCode(err))

	require.NoError(t, setup.PeriodGuard.ReopenPeriod(ctx, setup.BusinessID, "2026-02", setup.ActorID))

	bill := setup.createBill(t, vendor.ID,
		10000,
		time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, domain.BillStatusOpen, bill.Status)
}

// Concurrent appliers against one bill must never jointly exceed its face
// amount. Serializable transactions force one of two racing applications to
// fail instead of silently over-applying.
func TestPayablesConcurrentApplyConservation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newPayablesTestSetup(t)
	ctx := context.Background()

	vendor := setup.createVendor(t, "Acme Supplies")
	entryDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	bill := setup.createBill(t, vendor.ID, 10000, entryDate, entryDate.AddDate(0, 1, 0))

	const workers = 4
	payments := make([]*domain.PaymentEntry, workers)
	for i := range payments {
		payments[i] = setup.createPayment(t, vendor.ID, 8000, entryDate)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(p *domain.PaymentEntry) {
			defer wg.Done()
			// Either success or a conflict/over-apply rejection is fine;
			// the invariant below is what matters.
			_, _ = setup.AllocationService.Apply(ctx, setup.BusinessID, setup.ActorID, p.ID,
				[]payablesapp.BillApplication{{BillID: bill.ID, Amount: valueobject.FromMinorUnits(8000)}})
		}(payments[i])
	}
	wg.Wait()

	got, err := setup.BillService.GetBill(ctx, setup.BusinessID, bill.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.AppliedSum.MinorUnits(), got.Bill.Amount.MinorUnits(),
		"active applications exceeded the bill amount")
}

func TestPayablesAgingReport(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newPayablesTestSetup(t)
	ctx := context.Background()

	vendor := setup.createVendor(t, "Acme Supplies")
	asOf := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	// Current, 16 days past due, 89 days past due
	setup.createBill(t, vendor.ID, 10000, asOf.AddDate(0, 0, -11), asOf.AddDate(0, 0, 9))
	setup.createBill(t, vendor.ID, 5000, asOf.AddDate(0, -2, 0), asOf.AddDate(0, 0, -16))
	setup.createBill(t, vendor.ID, 2000, asOf.AddDate(0, -4, 0), asOf.AddDate(0, 0, -89))

	rows, err := setup.AgingService.AgingSummary(ctx, setup.BusinessID, asOf, nil, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, vendor.ID, row.VendorID)
	assert.Equal(t, int64(10000), row.Current.MinorUnits())
	assert.Equal(t, int64(5000), row.Days1To30.MinorUnits())
	assert.Equal(t, int64(2000), row.Days61Plus.MinorUnits())
	assert.Equal(t, int64(17000), row.Total.MinorUnits())
}
