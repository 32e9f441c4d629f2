package payables

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/require"
)

// fakeStore is a single in-memory backing store shared by the fake
// repositories. Methods hand out copies so mutations only land via Save.
type fakeStore struct {
	mu          sync.Mutex
	bills       map[uuid.UUID]domain.Bill
	payments    map[uuid.UUID]domain.PaymentEntry
	allocations map[uuid.UUID]domain.BillPayment
	closed      map[string]domain.ClosedPeriod
	vendors     map[uuid.UUID]domain.Vendor
	categories  map[uuid.UUID]domain.Category
	logs        []domain.ActivityLog

	failLogAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bills:       make(map[uuid.UUID]domain.Bill),
		payments:    make(map[uuid.UUID]domain.PaymentEntry),
		allocations: make(map[uuid.UUID]domain.BillPayment),
		closed:      make(map[string]domain.ClosedPeriod),
		vendors:     make(map[uuid.UUID]domain.Vendor),
		categories:  make(map[uuid.UUID]domain.Category),
	}
}

func (s *fakeStore) repos() domain.Repositories {
	return domain.Repositories{
		Bills:         &fakeBillRepo{s},
		Payments:      &fakePaymentRepo{s},
		Allocations:   &fakeAllocationRepo{s},
		ClosedPeriods: &fakeClosedPeriodRepo{s},
		Vendors:       &fakeVendorRepo{s},
		Categories:    &fakeCategoryRepo{s},
	}
}

func closedKey(businessID uuid.UUID, month string) string {
	return businessID.String() + "|" + month
}

type fakeBillRepo struct{ s *fakeStore }

func (r *fakeBillRepo) FindByIDForBusiness(_ context.Context, businessID, id uuid.UUID) (*domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bill, ok := r.s.bills[id]
	if !ok || bill.BusinessID != businessID {
		return nil, nil
	}
	return &bill, nil
}

func (r *fakeBillRepo) FindByIDs(_ context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Bill
	for _, id := range ids {
		if bill, ok := r.s.bills[id]; ok && bill.BusinessID == businessID {
			out = append(out, bill)
		}
	}
	return out, nil
}

func (r *fakeBillRepo) FindAllForBusiness(_ context.Context, businessID uuid.UUID, filter domain.BillFilter) ([]domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Bill
	for _, bill := range r.s.bills {
		if bill.BusinessID != businessID {
			continue
		}
		if filter.VendorID != nil && bill.VendorID != *filter.VendorID {
			continue
		}
		if filter.Status != nil && bill.Status != *filter.Status {
			continue
		}
		out = append(out, bill)
	}
	return out, nil
}

func (r *fakeBillRepo) FindOpenForVendors(_ context.Context, businessID uuid.UUID, vendorIDs []uuid.UUID) ([]domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(vendorIDs))
	for _, id := range vendorIDs {
		wanted[id] = true
	}
	var out []domain.Bill
	for _, bill := range r.s.bills {
		if bill.BusinessID != businessID || bill.IsVoid() {
			continue
		}
		if len(vendorIDs) > 0 && !wanted[bill.VendorID] {
			continue
		}
		out = append(out, bill)
	}
	return out, nil
}

func (r *fakeBillRepo) FindByVendorInRange(_ context.Context, businessID, vendorID uuid.UUID, from, to time.Time) ([]domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Bill
	for _, bill := range r.s.bills {
		if bill.BusinessID != businessID || bill.VendorID != vendorID || bill.IsVoid() {
			continue
		}
		if bill.InvoiceDate.Before(from) || bill.InvoiceDate.After(to) {
			continue
		}
		out = append(out, bill)
	}
	return out, nil
}

func (r *fakeBillRepo) Save(_ context.Context, bill *domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bills[bill.ID] = *bill
	return nil
}

func (r *fakeBillRepo) SaveWithLock(_ context.Context, bill *domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.bills[bill.ID]; ok && stored.Version > bill.Version {
		return shared.ErrConcurrencyConflict
	}
	r.s.bills[bill.ID] = *bill
	return nil
}

func (r *fakeBillRepo) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.BillFilter) (int64, error) {
	bills, err := r.FindAllForBusiness(ctx, businessID, filter)
	return int64(len(bills)), err
}

type fakePaymentRepo struct{ s *fakeStore }

func (r *fakePaymentRepo) FindByIDForBusiness(_ context.Context, businessID, id uuid.UUID) (*domain.PaymentEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry, ok := r.s.payments[id]
	if !ok || entry.BusinessID != businessID {
		return nil, nil
	}
	return &entry, nil
}

func (r *fakePaymentRepo) FindVendorPayments(_ context.Context, businessID, vendorID uuid.UUID) ([]domain.PaymentEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PaymentEntry
	for _, entry := range r.s.payments {
		if entry.BusinessID != businessID || entry.IsDeleted() || !entry.IsVendorPayment() {
			continue
		}
		if entry.VendorID == nil || *entry.VendorID != vendorID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *fakePaymentRepo) FindAllForBusiness(_ context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) ([]domain.PaymentEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PaymentEntry
	for _, entry := range r.s.payments {
		if entry.BusinessID != businessID {
			continue
		}
		if entry.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Kind != nil && entry.Kind != *filter.Kind {
			continue
		}
		if filter.VendorID != nil && (entry.VendorID == nil || *entry.VendorID != *filter.VendorID) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, entry *domain.PaymentEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments[entry.ID] = *entry
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(_ context.Context, entry *domain.PaymentEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.payments[entry.ID]; ok && stored.Version > entry.Version {
		return shared.ErrConcurrencyConflict
	}
	r.s.payments[entry.ID] = *entry
	return nil
}

func (r *fakePaymentRepo) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter domain.PaymentEntryFilter) (int64, error) {
	entries, err := r.FindAllForBusiness(ctx, businessID, filter)
	return int64(len(entries)), err
}

type fakeAllocationRepo struct{ s *fakeStore }

func (r *fakeAllocationRepo) FindActiveByPayment(_ context.Context, businessID, paymentEntryID uuid.UUID) ([]domain.BillPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.BillPayment
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.PaymentEntryID == paymentEntryID && row.Active {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) FindActiveByPaymentAndBills(_ context.Context, businessID, paymentEntryID uuid.UUID, billIDs []uuid.UUID) ([]domain.BillPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(billIDs))
	for _, id := range billIDs {
		wanted[id] = true
	}
	var out []domain.BillPayment
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.PaymentEntryID == paymentEntryID && row.Active && wanted[row.BillID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) FindActivePair(_ context.Context, businessID, paymentEntryID, billID uuid.UUID) (*domain.BillPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.PaymentEntryID == paymentEntryID && row.BillID == billID && row.Active {
			out := row
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeAllocationRepo) FindByBill(_ context.Context, businessID, billID uuid.UUID) ([]domain.BillPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.BillPayment
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.BillID == billID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) SumActiveByBill(ctx context.Context, businessID, billID uuid.UUID) (valueobject.Money, error) {
	sums, err := r.SumActiveByBills(ctx, businessID, []uuid.UUID{billID})
	if err != nil {
		return valueobject.Zero, err
	}
	return sums[billID], nil
}

func (r *fakeAllocationRepo) SumActiveByBills(_ context.Context, businessID uuid.UUID, billIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(billIDs))
	for _, id := range billIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]valueobject.Money)
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.Active && wanted[row.BillID] {
			out[row.BillID] = out[row.BillID].Add(row.Amount)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) SumActiveByPayment(ctx context.Context, businessID, paymentEntryID uuid.UUID) (valueobject.Money, error) {
	sums, err := r.SumActiveByPayments(ctx, businessID, []uuid.UUID{paymentEntryID})
	if err != nil {
		return valueobject.Zero, err
	}
	return sums[paymentEntryID], nil
}

func (r *fakeAllocationRepo) SumActiveByPayments(_ context.Context, businessID uuid.UUID, paymentEntryIDs []uuid.UUID) (map[uuid.UUID]valueobject.Money, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(paymentEntryIDs))
	for _, id := range paymentEntryIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]valueobject.Money)
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.Active && wanted[row.PaymentEntryID] {
			out[row.PaymentEntryID] = out[row.PaymentEntryID].Add(row.Amount)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) HasActiveByBill(_ context.Context, businessID, billID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.BillID == billID && row.Active {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAllocationRepo) HasActiveByPayment(_ context.Context, businessID, paymentEntryID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.allocations {
		if row.BusinessID == businessID && row.PaymentEntryID == paymentEntryID && row.Active {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAllocationRepo) Save(_ context.Context, allocation *domain.BillPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.allocations[allocation.ID] = *allocation
	return nil
}

type fakeClosedPeriodRepo struct{ s *fakeStore }

func (r *fakeClosedPeriodRepo) Exists(_ context.Context, businessID uuid.UUID, month string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.closed[closedKey(businessID, month)]
	return ok, nil
}

func (r *fakeClosedPeriodRepo) Save(_ context.Context, period *domain.ClosedPeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.closed[closedKey(period.BusinessID, period.Month)] = *period
	return nil
}

func (r *fakeClosedPeriodRepo) Delete(_ context.Context, businessID uuid.UUID, month string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.closed, closedKey(businessID, month))
	return nil
}

func (r *fakeClosedPeriodRepo) ListForBusiness(_ context.Context, businessID uuid.UUID) ([]domain.ClosedPeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ClosedPeriod
	for _, period := range r.s.closed {
		if period.BusinessID == businessID {
			out = append(out, period)
		}
	}
	return out, nil
}

type fakeVendorRepo struct{ s *fakeStore }

func (r *fakeVendorRepo) FindByIDForBusiness(_ context.Context, businessID, id uuid.UUID) (*domain.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vendor, ok := r.s.vendors[id]
	if !ok || vendor.BusinessID != businessID {
		return nil, nil
	}
	return &vendor, nil
}

func (r *fakeVendorRepo) ExistsForBusiness(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	vendor, err := r.FindByIDForBusiness(ctx, businessID, id)
	return vendor != nil, err
}

func (r *fakeVendorRepo) FindAllForBusiness(_ context.Context, businessID uuid.UUID, _ shared.Filter) ([]domain.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Vendor
	for _, vendor := range r.s.vendors {
		if vendor.BusinessID == businessID {
			out = append(out, vendor)
		}
	}
	return out, nil
}

func (r *fakeVendorRepo) Save(_ context.Context, vendor *domain.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.vendors[vendor.ID] = *vendor
	return nil
}

type fakeCategoryRepo struct{ s *fakeStore }

func (r *fakeCategoryRepo) FindByName(_ context.Context, businessID uuid.UUID, name string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, category := range r.s.categories {
		if category.BusinessID == businessID && category.Name == name {
			out := category
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeCategoryRepo) Save(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.categories[category.ID] = *category
	return nil
}

type fakeActivityLogRepo struct{ s *fakeStore }

func (r *fakeActivityLogRepo) Append(_ context.Context, entry *domain.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failLogAppend {
		return errors.New("activity log unavailable")
	}
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r *fakeActivityLogRepo) ListForBusiness(_ context.Context, businessID uuid.UUID, _ shared.Filter) ([]domain.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ActivityLog
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		if r.s.logs[i].BusinessID == businessID {
			out = append(out, r.s.logs[i])
		}
	}
	return out, nil
}

// fakeTxManager hands the shared store's repositories straight to the
// callback; atomicity is not simulated
type fakeTxManager struct{ repos domain.Repositories }

func (m fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return fn(ctx, m.repos)
}

// mapCache is a trivial ClosedPeriodCache for guard tests
type mapCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]bool)}
}

func (c *mapCache) Get(_ context.Context, businessID uuid.UUID, month string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	closed, found := c.entries[closedKey(businessID, month)]
	return closed, found
}

func (c *mapCache) Set(_ context.Context, businessID uuid.UUID, month string, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[closedKey(businessID, month)] = closed
}

func (c *mapCache) Invalidate(_ context.Context, businessID uuid.UUID, month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, closedKey(businessID, month))
}

// testEnv wires the full service stack over the fake store
type testEnv struct {
	store *fakeStore
	repos domain.Repositories
	guard *PeriodGuard
	audit *ActivityLogger

	bills       *BillService
	payments    *PaymentService
	allocations *AllocationService
	aging       *AgingService
	vendors     *VendorService

	businessID uuid.UUID
	actorID    uuid.UUID
	accountID  uuid.UUID
	vendorID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	repos := store.repos()
	tx := fakeTxManager{repos: repos}
	audit := NewActivityLogger(&fakeActivityLogRepo{store}, nil)
	guard := NewPeriodGuard(repos.ClosedPeriods, nil, audit, nil)

	env := &testEnv{
		store:       store,
		repos:       repos,
		guard:       guard,
		audit:       audit,
		bills:       NewBillService(tx, repos, guard, audit, nil),
		payments:    NewPaymentService(tx, repos, guard, audit, nil),
		allocations: NewAllocationService(tx, guard, audit, nil),
		aging:       NewAgingService(repos),
		vendors:     NewVendorService(repos, nil),
		businessID:  uuid.New(),
		actorID:     uuid.New(),
		accountID:   uuid.New(),
	}

	vendor, err := env.vendors.CreateVendor(context.Background(), env.businessID, env.actorID, "Acme Supplies", "")
	require.NoError(t, err)
	env.vendorID = vendor.ID

	return env
}

func (e *testEnv) createVendor(t *testing.T, name string) uuid.UUID {
	t.Helper()
	vendor, err := e.vendors.CreateVendor(context.Background(), e.businessID, e.actorID, name, "")
	require.NoError(t, err)
	return vendor.ID
}

func (e *testEnv) createBill(t *testing.T, amountMinorUnits int64, memo string) *domain.Bill {
	t.Helper()
	return e.createBillFor(t, e.vendorID, amountMinorUnits, memo,
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC))
}

func (e *testEnv) createBillFor(t *testing.T, vendorID uuid.UUID, amountMinorUnits int64, memo string, invoiceDate, dueDate time.Time) *domain.Bill {
	t.Helper()
	bill, err := e.bills.CreateBill(context.Background(), CreateBillRequest{
		BusinessID:  e.businessID,
		ActorID:     e.actorID,
		VendorID:    vendorID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Amount:      valueobject.FromMinorUnits(amountMinorUnits),
		Memo:        memo,
	})
	require.NoError(t, err)
	return bill
}

func (e *testEnv) createPayment(t *testing.T, amountMinorUnits int64) *domain.PaymentEntry {
	t.Helper()
	entry, err := e.payments.CreateVendorPayment(context.Background(), CreateVendorPaymentRequest{
		BusinessID: e.businessID,
		ActorID:    e.actorID,
		AccountID:  e.accountID,
		VendorID:   e.vendorID,
		EntryDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:     valueobject.FromMinorUnits(amountMinorUnits),
		Method:     domain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) billByID(t *testing.T, id uuid.UUID) *domain.Bill {
	t.Helper()
	bill, err := e.repos.Bills.FindByIDForBusiness(context.Background(), e.businessID, id)
	require.NoError(t, err)
	require.NotNil(t, bill)
	return bill
}

func (e *testEnv) paymentByID(t *testing.T, id uuid.UUID) *domain.PaymentEntry {
	t.Helper()
	entry, err := e.repos.Payments.FindByIDForBusiness(context.Background(), e.businessID, id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	return entry
}

// requireDomainCode asserts err is a DomainError with the given code
func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, code, derr.Code)
}
