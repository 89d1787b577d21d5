package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *event.Event) {}

// validateActor rejects callers the auth collaborator did not identify
func validateActor(actor entity.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return workflow.NewValidationError("actor", "actor id is required")
	}
	if !actor.Role.IsValid() {
		return workflow.NewValidationError("actor", fmt.Sprintf("unknown role %q", actor.Role))
	}
	return nil
}

// loadAs loads an entity and checks it is of the expected kind.
// An entity of another kind is reported as not found.
func loadAs[T entity.WorkflowEntity](ctx context.Context, store port.EntityStore, id string, kind workflow.Kind) (T, error) {
	var zero T
	if strings.TrimSpace(id) == "" {
		return zero, workflow.NewValidationError("id", "id is required")
	}

	e, err := store.Load(ctx, id)
	if err != nil {
		return zero, err
	}

	typed, ok := e.(T)
	if !ok || e.Base().Kind != kind {
		return zero, fmt.Errorf("%w: %s %s", workflow.ErrNotFound, kind, id)
	}
	return typed, nil
}

// commitTransition appends the history entry a permitted decision requires
// and saves the entity against the version it was loaded at.
func commitTransition(
	ctx context.Context,
	store port.EntityStore,
	e entity.WorkflowEntity,
	track entity.Track,
	d workflow.Decision,
	actor entity.Actor,
	feedback string,
	at time.Time,
) (entity.HistoryEntry, error) {
	feedback = cleanFeedback(feedback)
	if d.Audit.FeedbackRequired && feedback == "" {
		return entity.HistoryEntry{}, workflow.NewValidationError("feedback", "feedback is required for this transition")
	}

	base := e.Base()
	expected := base.Version
	h := base.Append(track, d.Audit.From, d.Next, actor, feedback, at)

	if err := store.Save(ctx, e, expected); err != nil {
		return entity.HistoryEntry{}, err
	}
	return h, nil
}

func cleanFeedback(feedback string) string {
	return strings.TrimSpace(utils.SanitizeString(feedback))
}

// deny builds a denial for checks that live outside the state graph
func deny(kind workflow.Kind, from, to workflow.Status, reason workflow.DenyReason, guard string) error {
	return &workflow.DenyError{Kind: kind, From: from, To: to, Reason: reason, Guard: guard}
}
