package entity

import (
	"fmt"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Track identifies which status field a history entry moved
type Track string

const (
	TrackStatus           Track = "status"
	TrackCulturalApproval Track = "cultural_approval"
)

// Actor is the authenticated caller supplied by the auth collaborator
type Actor struct {
	ID   string        `json:"id"`
	Role workflow.Role `json:"role"`
}

// HistoryEntry is one append-only audit row
type HistoryEntry struct {
	Seq        int             `json:"seq"`
	Track      Track           `json:"track"`
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	ActorRole  workflow.Role   `json:"actor_role"`
	ActorID    string          `json:"actor_id"`
	Feedback   string          `json:"feedback,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Entity holds the fields shared by every workflow entity
type Entity struct {
	ID        string          `json:"id"`
	Kind      workflow.Kind   `json:"kind"`
	Status    workflow.Status `json:"status"`
	OwnerID   string          `json:"owner_id"`
	Version   int64           `json:"version"`
	History   []HistoryEntry  `json:"history"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// committed counts history entries already persisted
	committed int
}

// WorkflowEntity is implemented by Order, SellerProfile and CategoryRequest
type WorkflowEntity interface {
	// Base returns the shared entity fields
	Base() *Entity

	// Details returns a pointer to the kind-specific fields, persisted as one document
	Details() interface{}
}

// Base implements WorkflowEntity
func (e *Entity) Base() *Entity {
	return e
}

// Append records a transition on a track. For TrackStatus it also moves Status.
func (e *Entity) Append(track Track, from, to workflow.Status, actor Actor, feedback string, at time.Time) HistoryEntry {
	entry := HistoryEntry{
		Seq:        len(e.History) + 1,
		Track:      track,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  actor.Role,
		ActorID:    actor.ID,
		Feedback:   feedback,
		Timestamp:  at,
	}
	e.History = append(e.History, entry)
	if track == TrackStatus {
		e.Status = to
	}
	e.UpdatedAt = at
	return entry
}

// LastEntry returns the most recent history entry on a track
func (e *Entity) LastEntry(track Track) (HistoryEntry, bool) {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].Track == track {
			return e.History[i], true
		}
	}
	return HistoryEntry{}, false
}

// StatusSince returns when the entity entered its current status
func (e *Entity) StatusSince() time.Time {
	for i := len(e.History) - 1; i >= 0; i-- {
		h := e.History[i]
		if h.Track == TrackStatus && h.FromStatus != h.ToStatus {
			return h.Timestamp
		}
	}
	return e.CreatedAt
}

// LatestFeedback returns the most recent non-empty operator feedback
func (e *Entity) LatestFeedback() string {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].Feedback != "" {
			return e.History[i].Feedback
		}
	}
	return ""
}

// CheckConsistency verifies that Status matches the status-track history
func (e *Entity) CheckConsistency(initial workflow.Status) error {
	want := initial
	if last, ok := e.LastEntry(TrackStatus); ok {
		want = last.ToStatus
	}
	if e.Status != want {
		return fmt.Errorf("entity %s: status %s does not match history %s", e.ID, e.Status, want)
	}
	for i, h := range e.History {
		if h.Seq != i+1 {
			return fmt.Errorf("entity %s: history seq %d at position %d", e.ID, h.Seq, i)
		}
	}
	return nil
}

// UncommittedHistory returns the entries appended since the entity was loaded or saved
func (e *Entity) UncommittedHistory() []HistoryEntry {
	if e.committed >= len(e.History) {
		return nil
	}
	return e.History[e.committed:]
}

// MarkCommitted records that every history entry is persisted
func (e *Entity) MarkCommitted() {
	e.committed = len(e.History)
}

// New returns an empty entity of the given kind, ready to be filled by a store
func New(kind workflow.Kind) (WorkflowEntity, error) {
	switch kind {
	case workflow.KindOrder:
		return &Order{Entity: Entity{Kind: kind}}, nil
	case workflow.KindSeller:
		return &SellerProfile{Entity: Entity{Kind: kind}}, nil
	case workflow.KindCategoryRequest:
		return &CategoryRequest{Entity: Entity{Kind: kind}}, nil
	default:
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}
}

// SellerScoped is implemented by entities that belong to a seller's workload
type SellerScoped interface {
	SellerRef() string
}
