package payables

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an append-only audit record of a state-changing
// operation. Writes are best-effort: a failed append must never abort the
// operation it describes.
type ActivityLog struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	BusinessID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID       `gorm:"type:uuid;not null"`
	EventType  string          `gorm:"type:varchar(100);not null;index"`
	Payload    json.RawMessage `gorm:"type:jsonb"`
	AccountID  *uuid.UUID      `gorm:"type:uuid"` // Optional account scope
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// NewActivityLog creates an audit record; the payload is marshalled to JSON
func NewActivityLog(businessID, actorID uuid.UUID, eventType string, payload any, accountID *uuid.UUID) (*ActivityLog, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ActivityLog{
		ID:         uuid.New(),
		BusinessID: businessID,
		ActorID:    actorID,
		EventType:  eventType,
		Payload:    raw,
		AccountID:  accountID,
		CreatedAt:  time.Now(),
	}, nil
}
