package payables

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ClosedPeriodCache caches closed-month lookups. This is the one read every
// mutating operation performs, so it is worth keeping off the database.
// Implementations must be safe for concurrent use.
type ClosedPeriodCache interface {
	// Get returns (closed, true) on a cache hit, (_, false) on a miss
	Get(ctx context.Context, businessID uuid.UUID, month string) (closed bool, found bool)

	// Set records whether the month is closed
	Set(ctx context.Context, businessID uuid.UUID, month string, closed bool)

	// Invalidate drops the cached entry for the month
	Invalidate(ctx context.Context, businessID uuid.UUID, month string)
}

// NewClosedPeriodError builds the structured error for a mutation hitting a
// frozen accounting month. The month rides in the message so the caller can
// render it.
func NewClosedPeriodError(month string) *shared.DomainError {
	return shared.NewDomainError("CLOSED_PERIOD", fmt.Sprintf("Accounting period %s is closed", month))
}

// PeriodGuard answers whether a date's accounting month is frozen and owns
// the close/reopen markers. Every mutating service calls CheckNotClosed
// before touching any row.
type PeriodGuard struct {
	periods domain.ClosedPeriodRepository
	cache   ClosedPeriodCache
	audit   *ActivityLogger
	logger  *zap.Logger
}

// NewPeriodGuard creates a new PeriodGuard. The cache may be nil, in which
// case every check hits the repository.
func NewPeriodGuard(
	periods domain.ClosedPeriodRepository,
	cache ClosedPeriodCache,
	audit *ActivityLogger,
	logger *zap.Logger,
) *PeriodGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodGuard{
		periods: periods,
		cache:   cache,
		audit:   audit,
		logger:  logger,
	}
}

// CheckNotClosed normalizes the date to its YYYY-MM month and returns a
// CLOSED_PERIOD error if the business has closed that month. Pure read.
func (g *PeriodGuard) CheckNotClosed(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	month := domain.MonthKey(date)

	if g.cache != nil {
		if closed, found := g.cache.Get(ctx, businessID, month); found {
			if closed {
				return NewClosedPeriodError(month)
			}
			return nil
		}
	}

	closed, err := g.periods.Exists(ctx, businessID, month)
	if err != nil {
		return fmt.Errorf("failed to check closed period: %w", err)
	}

	if g.cache != nil {
		g.cache.Set(ctx, businessID, month, closed)
	}

	if closed {
		return NewClosedPeriodError(month)
	}
	return nil
}

// ClosePeriod freezes a YYYY-MM month for the business. Closing an already
// closed month is a no-op success.
func (g *PeriodGuard) ClosePeriod(ctx context.Context, businessID uuid.UUID, month string, actorID uuid.UUID) error {
	if !domain.ValidMonthKey(month) {
		return shared.NewDomainError("INVALID_DATE", "Month must be in YYYY-MM format")
	}

	exists, err := g.periods.Exists(ctx, businessID, month)
	if err != nil {
		return fmt.Errorf("failed to check closed period: %w", err)
	}
	if exists {
		return nil
	}

	period, err := domain.NewClosedPeriod(businessID, month, actorID)
	if err != nil {
		return err
	}
	if err := g.periods.Save(ctx, period); err != nil {
		return fmt.Errorf("failed to close period: %w", err)
	}

	if g.cache != nil {
		g.cache.Set(ctx, businessID, month, true)
	}
	g.audit.Record(ctx, businessID, actorID, domain.EventTypePeriodClosed, map[string]string{"month": month}, nil)
	return nil
}

// ReopenPeriod unfreezes a previously closed month. Reopening a month that
// is not closed is a no-op success.
func (g *PeriodGuard) ReopenPeriod(ctx context.Context, businessID uuid.UUID, month string, actorID uuid.UUID) error {
	if !domain.ValidMonthKey(month) {
		return shared.NewDomainError("INVALID_DATE", "Month must be in YYYY-MM format")
	}

	if err := g.periods.Delete(ctx, businessID, month); err != nil {
		return fmt.Errorf("failed to reopen period: %w", err)
	}

	if g.cache != nil {
		g.cache.Invalidate(ctx, businessID, month)
	}
	g.audit.Record(ctx, businessID, actorID, domain.EventTypePeriodReopened, map[string]string{"month": month}, nil)
	return nil
}

// ListClosedPeriods returns the business's closed months
func (g *PeriodGuard) ListClosedPeriods(ctx context.Context, businessID uuid.UUID) ([]domain.ClosedPeriod, error) {
	periods, err := g.periods.ListForBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed periods: %w", err)
	}
	return periods, nil
}
