package payables

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// AgingPageCap bounds a per-business aging summary to a fixed page size
const AgingPageCap = 50

// AgingBuckets splits a vendor's open balance by days past due. Boundaries
// are inclusive: current is due on or after the as-of date, then 1..30,
// 31..60 and beyond 60 days past due.
type AgingBuckets struct {
	Current    valueobject.Money `json:"current"`
	Days1To30  valueobject.Money `json:"days_1_to_30"`
	Days31To60 valueobject.Money `json:"days_31_to_60"`
	Days61Plus valueobject.Money `json:"days_61_plus"`
	Total      valueobject.Money `json:"total"`
}

// add places an outstanding amount into the bucket for daysPastDue
func (b *AgingBuckets) add(daysPastDue int, outstanding valueobject.Money) {
	switch {
	case daysPastDue <= 0:
		b.Current = b.Current.Add(outstanding)
	case daysPastDue <= 30:
		b.Days1To30 = b.Days1To30.Add(outstanding)
	case daysPastDue <= 60:
		b.Days31To60 = b.Days31To60.Add(outstanding)
	default:
		b.Days61Plus = b.Days61Plus.Add(outstanding)
	}
	b.Total = b.Total.Add(outstanding)
}

// VendorAging is one vendor's row in the aging summary
type VendorAging struct {
	VendorID   uuid.UUID `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	AgingBuckets
}

// StatementRow is one bill's line on a vendor statement
type StatementRow struct {
	BillID      uuid.UUID         `json:"bill_id"`
	InvoiceDate time.Time         `json:"invoice_date"`
	DueDate     time.Time         `json:"due_date"`
	Amount      valueobject.Money `json:"amount"`
	Applied     valueobject.Money `json:"applied"`
	Outstanding valueobject.Money `json:"outstanding"`
	Status      domain.BillStatus `json:"status"`
	Memo        string            `json:"memo"`
}

// AgingService is the pure read path over bills and allocations. It never
// mutates state and all aggregation is exact integer arithmetic.
type AgingService struct {
	repos domain.Repositories
}

// NewAgingService creates a new AgingService
func NewAgingService(repos domain.Repositories) *AgingService {
	return &AgingService{repos: repos}
}

// daysPastDue counts whole calendar days from dueDate to asOf, both
// normalized to midnight so time-of-day never shifts a bucket
func daysPastDue(asOf, dueDate time.Time) int {
	truncate := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(truncate(asOf).Sub(truncate(dueDate)) / (24 * time.Hour))
}

// AgingSummary buckets every vendor's open balance as of the given date,
// optionally restricted to a vendor-id set. Output is sorted by vendor name
// and capped at AgingPageCap rows; page is 1-based.
func (s *AgingService) AgingSummary(
	ctx context.Context,
	businessID uuid.UUID,
	asOf time.Time,
	vendorIDs []uuid.UUID,
	page int,
) ([]VendorAging, error) {
	bills, err := s.repos.Bills.FindOpenForVendors(ctx, businessID, vendorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load open bills: %w", err)
	}
	if len(bills) == 0 {
		return []VendorAging{}, nil
	}

	billIDs := make([]uuid.UUID, len(bills))
	for i := range bills {
		billIDs[i] = bills[i].ID
	}
	sums, err := s.repos.Allocations.SumActiveByBills(ctx, businessID, billIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}

	byVendor := make(map[uuid.UUID]*VendorAging)
	for i := range bills {
		bill := &bills[i]
		outstanding := bill.Outstanding(sums[bill.ID])
		if !outstanding.IsPositive() {
			continue
		}
		row, ok := byVendor[bill.VendorID]
		if !ok {
			row = &VendorAging{VendorID: bill.VendorID}
			byVendor[bill.VendorID] = row
		}
		row.add(daysPastDue(asOf, bill.DueDate), outstanding)
	}

	rows := make([]VendorAging, 0, len(byVendor))
	for vendorID, row := range byVendor {
		vendor, err := s.repos.Vendors.FindByIDForBusiness(ctx, businessID, vendorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load vendor: %w", err)
		}
		if vendor != nil {
			row.VendorName = vendor.Name
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VendorName != rows[j].VendorName {
			return rows[i].VendorName < rows[j].VendorName
		}
		return rows[i].VendorID.String() < rows[j].VendorID.String()
	})

	if page < 1 {
		page = 1
	}
	start := (page - 1) * AgingPageCap
	if start >= len(rows) {
		return []VendorAging{}, nil
	}
	end := start + AgingPageCap
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

// VendorAgingDetail buckets a single vendor's open balance
func (s *AgingService) VendorAgingDetail(ctx context.Context, businessID, vendorID uuid.UUID, asOf time.Time) (*VendorAging, error) {
	rows, err := s.AgingSummary(ctx, businessID, asOf, []uuid.UUID{vendorID}, 1)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].VendorID == vendorID {
			return &rows[i], nil
		}
	}
	vendor, err := s.repos.Vendors.FindByIDForBusiness(ctx, businessID, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	if vendor == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Vendor not found")
	}
	return &VendorAging{VendorID: vendorID, VendorName: vendor.Name}, nil
}

// VendorCredit sums the positive unapplied capacity across a vendor's
// undeleted payments: abs(amount) minus the active allocated sum, counted
// only where positive.
func (s *AgingService) VendorCredit(ctx context.Context, businessID, vendorID uuid.UUID) (valueobject.Money, error) {
	entries, err := s.repos.Payments.FindVendorPayments(ctx, businessID, vendorID)
	if err != nil {
		return valueobject.Zero, fmt.Errorf("failed to load vendor payments: %w", err)
	}
	if len(entries) == 0 {
		return valueobject.Zero, nil
	}

	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}
	sums, err := s.repos.Allocations.SumActiveByPayments(ctx, businessID, ids)
	if err != nil {
		return valueobject.Zero, fmt.Errorf("failed to sum allocations: %w", err)
	}

	credit := valueobject.Zero
	for i := range entries {
		unapplied := entries[i].Capacity().Sub(sums[entries[i].ID])
		if unapplied.IsPositive() {
			credit = credit.Add(unapplied)
		}
	}
	return credit, nil
}

// Statement produces one row per non-void bill of the vendor with an
// invoice date in [from, to], oldest first
func (s *AgingService) Statement(ctx context.Context, businessID, vendorID uuid.UUID, from, to time.Time) ([]StatementRow, error) {
	bills, err := s.repos.Bills.FindByVendorInRange(ctx, businessID, vendorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bills: %w", err)
	}
	if len(bills) == 0 {
		return []StatementRow{}, nil
	}

	ids := make([]uuid.UUID, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	sums, err := s.repos.Allocations.SumActiveByBills(ctx, businessID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}

	rows := make([]StatementRow, len(bills))
	for i := range bills {
		applied := sums[bills[i].ID]
		rows[i] = StatementRow{
			BillID:      bills[i].ID,
			InvoiceDate: bills[i].InvoiceDate,
			DueDate:     bills[i].DueDate,
			Amount:      bills[i].Amount,
			Applied:     applied,
			Outstanding: bills[i].Outstanding(applied),
			Status:      bills[i].Status,
			Memo:        bills[i].Memo,
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].InvoiceDate.Before(rows[j].InvoiceDate) })
	return rows, nil
}

// StatementCSV renders a vendor statement as CSV with decimal amounts
func (s *AgingService) StatementCSV(ctx context.Context, businessID, vendorID uuid.UUID, from, to time.Time) ([]byte, error) {
	rows, err := s.Statement(ctx, businessID, vendorID, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	record := []string{"bill_id", "invoice_date", "due_date", "amount", "applied", "outstanding", "status", "memo"}
	if err := w.Write(record); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		record = []string{
			row.BillID.String(),
			row.InvoiceDate.Format("2006-01-02"),
			row.DueDate.Format("2006-01-02"),
			row.Amount.String(),
			row.Applied.String(),
			row.Outstanding.String(),
			row.Status.String(),
			row.Memo,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
