package event

import (
	"testing"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeEntityCreated, true},
		{TypeStatusChanged, true},
		{TypeTrackingAttached, true},
		{TypeCulturalReviewed, true},
		{TypeCategoryCatalogued, true},
		{Type("voucher.generated"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTransitionEvent(t *testing.T) {
	e := &entity.Entity{ID: "O1", Kind: workflow.KindOrder, OwnerID: "c1", Version: 3}
	h := entity.HistoryEntry{
		Seq:        2,
		Track:      entity.TrackStatus,
		FromStatus: workflow.OrderPending,
		ToStatus:   workflow.OrderProcessing,
		ActorRole:  workflow.RoleSeller,
		ActorID:    "s1",
		Timestamp:  time.Now(),
	}

	evt := NewTransitionEvent(TypeStatusChanged, e, h)

	if evt.ID == "" {
		t.Error("event ID should be generated")
	}
	if evt.EntityID != "O1" || evt.Kind != workflow.KindOrder || evt.Version != 3 {
		t.Errorf("unexpected event header: %+v", evt)
	}
	if got := evt.GetPayloadString("to"); got != "processing" {
		t.Errorf("payload to = %v, want processing", got)
	}
	if got := evt.GetPayloadInt("seq"); got != 2 {
		t.Errorf("payload seq = %v, want 2", got)
	}
}

func TestEvent_WithPayloadIsImmutable(t *testing.T) {
	evt := NewEvent(TypeCategoryCatalogued, &entity.Entity{ID: "C1"}, nil)

	updated := evt.WithPayload("created", true)

	if evt.GetPayloadBool("created") {
		t.Error("original event payload must not change")
	}
	if !updated.GetPayloadBool("created") {
		t.Error("updated event should carry the new key")
	}
	if updated.ID != evt.ID {
		t.Error("WithPayload should keep the event ID")
	}
}
