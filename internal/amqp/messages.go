package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names a project mutation.
type EventType string

const (
	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"
	EventPaymentAdded   EventType = "payment.added"
	EventExpenseAdded   EventType = "expense.added"
	EventCategoryAdded  EventType = "category.added"
)

func (t EventType) Valid() bool {
	switch t {
	case EventProjectCreated, EventProjectUpdated, EventProjectDeleted,
		EventPaymentAdded, EventExpenseAdded, EventCategoryAdded:
		return true
	}
	return false
}

// ProjectEvent carries only the project id; consumers re-read the project
// from the store.
type ProjectEvent struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProjectEvent(t EventType, projectID string) *ProjectEvent {
	return &ProjectEvent{
		Type:      t,
		ProjectID: projectID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ProjectEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ProjectEventFromJSON decodes and checks an event body.
func ProjectEventFromJSON(data []byte) (*ProjectEvent, error) {
	var ev ProjectEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ProjectID == "" {
		return nil, errors.New("event has no project_id")
	}
	return &ev, nil
}
