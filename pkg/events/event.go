package events

import (
	"context"
	"time"
)

// Console activity event types.
const (
	DocumentUploaded = "DOCUMENT_UPLOADED"
	UploadFailed     = "UPLOAD_FAILED"
	FilesDeleted     = "FILES_DELETED"
	QueryAnswered    = "QUERY_ANSWERED"
	QueryFailed      = "QUERY_FAILED"
	SessionStarted   = "SESSION_STARTED"
)

// Event defines the contract for all console events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "FILES_DELETED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher ships events to whatever bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		out[k] = v
	}
	out["occurred_at"] = e.OccurredAt.UTC().Format(time.RFC3339)
	return out
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NopPublisher drops every event. Used when no bus is reachable.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
