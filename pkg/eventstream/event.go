package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryRemembered is emitted after a value is stored.
	EventTypeMemoryRemembered = "mnemo.memory.remembered"

	// EventTypeMemoryForgotten is emitted after a stored value is removed.
	EventTypeMemoryForgotten = "mnemo.memory.forgotten"
)

// MemoryEvent is a transport-neutral event payload for a memory mutation.
// Stored values are never part of the payload.
type MemoryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	ClientID      string    `json:"client_id"`
	RequestID     string    `json:"request_id,omitempty"`
	Namespace     string    `json:"namespace"`
	Key           string    `json:"key"`
}

// NewMemoryEvent stamps a new event with a fresh id and the current time.
func NewMemoryEvent(eventType, clientID, namespace, key string) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		ClientID:      clientID,
		Namespace:     namespace,
		Key:           key,
	}
}

// StoredKey is the full key the mutation touched in the backend.
func (e *MemoryEvent) StoredKey() string {
	return e.Namespace + e.Key
}
