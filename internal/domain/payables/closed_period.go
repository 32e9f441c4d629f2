package payables

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// monthKeyPattern matches a YYYY-MM accounting month key
var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKey normalizes a date to its YYYY-MM accounting month
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonthKey reports whether s is a well-formed YYYY-MM month key
func ValidMonthKey(s string) bool {
	return monthKeyPattern.MatchString(s)
}

// ClosedPeriod marks a business + calendar month as frozen: no bill,
// payment entry, or allocation mutation may be performed whose relevant
// accounting date falls in that month.
type ClosedPeriod struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_closed_periods_month,priority:1"`
	Month      string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_closed_periods_month,priority:2"` // YYYY-MM
	ClosedBy   uuid.UUID `gorm:"type:uuid;not null"`
	ClosedAt   time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (ClosedPeriod) TableName() string {
	return "closed_periods"
}

// NewClosedPeriod creates a closed-period marker for the given month
func NewClosedPeriod(businessID uuid.UUID, month string, closedBy uuid.UUID) (*ClosedPeriod, error) {
	if !ValidMonthKey(month) {
		return nil, shared.NewDomainError("INVALID_DATE", "Month must be in YYYY-MM format")
	}
	if closedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Closing user ID is required")
	}
	now := time.Now()
	return &ClosedPeriod{
		ID:         uuid.New(),
		BusinessID: businessID,
		Month:      month,
		ClosedBy:   closedBy,
		ClosedAt:   now,
		CreatedAt:  now,
	}, nil
}
