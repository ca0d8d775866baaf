package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alphaflow/blobkit/pkg/utils"
)

// Type identifies a storage lifecycle change.
type Type string

const (
	ContainerCreated Type = "container.created"
	ContainerDeleted Type = "container.deleted"
	BlobUploaded     Type = "blob.uploaded"
	BlobDeleted      Type = "blob.deleted"
)

// ContentType is the content type of encoded events.
const ContentType = "application/json"

// PropertyEventType is the application property carrying the event type.
const PropertyEventType = "event_type"

// Event describes a change made through the storage client.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Container  string    `json:"container"`
	Blob       string    `json:"blob,omitempty"`
	Size       int64     `json:"size,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event stamped with a fresh ID and the current time.
func New(eventType Type, container, blob string, size int64) Event {
	return Event{
		ID:         utils.GenerateEventID(),
		Type:       eventType,
		Container:  container,
		Blob:       blob,
		Size:       size,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode serializes an event for the wire.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return body, nil
}

// Decode parses an event body.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("failed to decode event: missing type")
	}
	return e, nil
}
