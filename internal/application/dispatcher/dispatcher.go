package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/marketplace-workflow/internal/domain/event"
)

// Publisher is the narrow port workflow services publish committed changes through
type Publisher interface {
	Publish(ctx context.Context, evt *event.Event)
}

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	Publisher

	// SubscribeNamed registers a handler for an event type under a name
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers a handler for every known event type
	SubscribeAll(name string, handler Handler, types ...event.Type)

	// Dispatch runs all handlers for the event synchronously and joins their errors
	Dispatch(ctx context.Context, evt *event.Event) error

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close rejects further events and waits for in-flight handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// eventDispatcher is the concrete implementation of Dispatcher
type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SubscribeNamed registers a handler with a specific name
func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	if d.logger != nil {
		d.logger.Info("Handler registered", "event_type", eventType, "handler_name", name)
	}
}

// SubscribeAll registers the handler for each given type
func (d *eventDispatcher) SubscribeAll(name string, handler Handler, types ...event.Type) {
	for _, t := range types {
		d.SubscribeNamed(t, name, handler)
	}
}

// Dispatch sends the event to all handlers and returns every failure joined
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	d.wg.Add(1)
	defer d.wg.Done()

	d.mu.RLock()
	handlers := append([]HandlerInfo{}, d.handlers[evt.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			errs = append(errs, fmt.Errorf("handler %s failed: %w", info.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Publish dispatches a committed change. Handler failures are logged, never
// returned: the change they describe is already durable.
func (d *eventDispatcher) Publish(ctx context.Context, evt *event.Event) {
	if err := d.Dispatch(ctx, evt); err != nil && d.logger != nil {
		d.logger.Error("Event handlers failed",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"entity_id", evt.EntityID,
			"error", err,
		)
	}
}

// ListHandlers returns registered handlers for an event type
func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[eventType]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{Name: h.Name, EventType: h.EventType}
	}

	return result
}

// Close shuts down the dispatcher and waits for in-flight dispatches
func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}

	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if d.logger != nil {
				d.logger.Error("Handler panic recovered",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", info.Name,
					"panic", r,
				)
			}
		}
	}()

	return info.Handler(ctx, evt)
}
