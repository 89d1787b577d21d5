package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Event is published after a workflow change has been committed
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Kind      workflow.Kind          `json:"kind"`
	EntityID  string                 `json:"entity_id"`
	OwnerID   string                 `json:"owner_id"`
	Version   int64                  `json:"version"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, e *entity.Entity, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Kind:      e.Kind,
		EntityID:  e.ID,
		OwnerID:   e.OwnerID,
		Version:   e.Version,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewTransitionEvent creates an event describing one history entry
func NewTransitionEvent(eventType Type, e *entity.Entity, h entity.HistoryEntry) *Event {
	return NewEvent(eventType, e, map[string]interface{}{
		"track":      string(h.Track),
		"from":       string(h.FromStatus),
		"to":         string(h.ToStatus),
		"actor_id":   h.ActorID,
		"actor_role": string(h.ActorRole),
		"feedback":   h.Feedback,
		"seq":        h.Seq,
	})
}

// NewCatalogEvent creates an event for a new approved-category catalog entry.
// sourceID is the approving request, or empty for a direct creation.
func NewCatalogEvent(c *entity.ApprovedCategory, sourceID, actorID string) *Event {
	return &Event{
		ID:       uuid.NewString(),
		Type:     TypeCategoryCatalogued,
		Kind:     workflow.KindCategoryRequest,
		EntityID: sourceID,
		Payload: map[string]interface{}{
			"normalized_name": c.NormalizedName,
			"display_name":    c.DisplayName,
			"actor_id":        actorID,
		},
		Timestamp: time.Now(),
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	copied := *e
	copied.Payload = newPayload
	return &copied
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
