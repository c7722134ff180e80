package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventLog records booking engine events for the audit trail.
// ActorName is copied at emission time, not joined back to an account.
type EventLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_event_trace;size:36" json:"trace_id"`
	ActorID   int64          `gorm:"index:idx_event_actor" json:"actor_id"`
	ActorName string         `gorm:"size:64" json:"actor_name"`
	EventType string         `gorm:"size:64;not null" json:"event_type"`
	BookingID *int64         `gorm:"index:idx_event_booking" json:"booking_id,omitempty"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index:idx_event_created;autoCreateTime:milli" json:"created_at"`
}
