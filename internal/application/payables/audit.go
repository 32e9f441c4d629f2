package payables

import (
	"context"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityLogger appends audit records on a best-effort basis. A failed
// append is logged at warn and swallowed: the audit trail must never abort
// the operation it describes. For the same reason Record is always called
// after the mutation's transaction commits, never inside it.
type ActivityLogger struct {
	repo   domain.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityLogger creates a new ActivityLogger
func NewActivityLogger(repo domain.ActivityLogRepository, logger *zap.Logger) *ActivityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogger{repo: repo, logger: logger}
}

// Record appends one audit record. Safe to call on a nil logger; errors are
// never returned.
func (l *ActivityLogger) Record(ctx context.Context, businessID, actorID uuid.UUID, eventType string, payload any, accountID *uuid.UUID) {
	if l == nil || l.repo == nil {
		return
	}

	entry, err := domain.NewActivityLog(businessID, actorID, eventType, payload, accountID)
	if err != nil {
		l.logger.Warn("failed to build activity log entry",
			zap.String("event_type", eventType),
			zap.String("business_id", businessID.String()),
			zap.Error(err),
		)
		return
	}

	if err := l.repo.Append(ctx, entry); err != nil {
		l.logger.Warn("failed to append activity log entry",
			zap.String("event_type", eventType),
			zap.String("business_id", businessID.String()),
			zap.Error(err),
		)
	}
}

// RecordAggregateEvents drains the aggregate's pending domain events into
// the audit trail, one record per event with the event itself as payload.
// Events are always cleared, so a second drain of the same aggregate
// records nothing.
func (l *ActivityLogger) RecordAggregateEvents(ctx context.Context, actorID uuid.UUID, agg shared.AggregateRoot, accountID *uuid.UUID) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	if l == nil || l.repo == nil {
		return
	}
	for _, event := range events {
		l.Record(ctx, event.BusinessID(), actorID, event.EventType(), event, accountID)
	}
}

// List returns recent audit records for a business, newest first
func (l *ActivityLogger) List(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]domain.ActivityLog, error) {
	if filter.Page < 1 {
		filter = shared.DefaultFilter()
	}
	return l.repo.ListForBusiness(ctx, businessID, filter)
}
