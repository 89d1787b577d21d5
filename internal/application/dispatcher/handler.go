package dispatcher

import (
	"context"

	"github.com/garyjia/marketplace-workflow/internal/domain/event"
)

// Handler reacts to a committed workflow change
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string     `json:"name"`
	EventType event.Type `json:"event_type"`
	Handler   Handler    `json:"-"`
}
