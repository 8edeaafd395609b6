package cut

import "time"

// EventType identifies a completed state change.
type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventDeleted     EventType = "deleted"
	EventMemoUpdated EventType = "memo_updated"
	EventViewState   EventType = "view_state"
	EventCleared     EventType = "cleared"
)

// Event is an immutable notification of a completed mutation. Published
// once per causal mutation; consumers must treat the payload as read-only.
type Event struct {
	ID          string
	AggregateID string
	Type        EventType
	OccurredAt  time.Time
	Payload     any
}
