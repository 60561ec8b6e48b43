package events

import (
	"context"
	"time"
)

// Funnel event codes.
const (
	TypeTurnRelayed    = "CONVERSATION_TURN_RELAYED"
	TypeHistoryFetched = "CONVERSATION_HISTORY_FETCHED"
	TypeCompleted      = "CONVERSATION_COMPLETED"
	TypeExported       = "CONVERSATION_EXPORTED"
	TypeBackendFailed  = "RELAY_BACKEND_FAILED"
)

// Payload keys.
const (
	KeyConversationID  = "conversation_id"
	KeyStatus          = "status"
	KeyPhase           = "current_phase"
	KeyOperation       = "operation"
	KeyExportFile      = "export_file"
	KeyNewConversation = "new_conversation"
	KeyEventID         = "event_id"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CONVERSATION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher delivers events to a bus. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func NewEvent(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
