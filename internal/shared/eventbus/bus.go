package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scl90-gate/internal/shared/logger"
)

// Event types published by the access module
const (
	EventTypeSessionCreated      = "session.created"
	EventTypeAccessCodeActivated = "access_code.activated"
	EventTypeAccessCodeCreated   = "access_code.created"
	EventTypeAccessCodeReset     = "access_code.reset"
	EventTypeAccessCodeDisabled  = "access_code.disabled"
	EventTypeAccessCodeEnabled   = "access_code.enabled"
	EventTypeSessionExpired      = "session.expired"

	// AllEvents subscribes a handler to every event type
	AllEvents = "*"
)

// Event represents a generic event
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// Publisher is the narrow side of the bus used by usecases
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	PublishAndForget(ctx context.Context, event Event)
}

// EventBus is an in-memory event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   logger.Logger
	config   BusConfig
	wg       sync.WaitGroup
}

// BusConfig holds configuration for the event bus
type BusConfig struct {
	AsyncProcessing bool
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultBusConfig returns default configuration
func DefaultBusConfig() BusConfig {
	return BusConfig{
		AsyncProcessing: false,
		MaxRetries:      2,
		RetryDelay:      100 * time.Millisecond,
	}
}

// NewEventBus creates a new event bus instance
func NewEventBus(log logger.Logger) *EventBus {
	return NewEventBusWithConfig(log, DefaultBusConfig())
}

// NewEventBusWithConfig creates a new event bus with custom configuration
func NewEventBusWithConfig(log logger.Logger, config BusConfig) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   log,
		config:   config,
	}
}

// Subscribe adds a handler for a specific event type, or AllEvents
func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debugf("Subscribed handler for event type: %s", eventType)
}

func (eb *EventBus) handlersFor(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	hs := make([]Handler, 0, len(eb.handlers[eventType])+len(eb.handlers[AllEvents]))
	hs = append(hs, eb.handlers[eventType]...)
	if eventType != AllEvents {
		hs = append(hs, eb.handlers[AllEvents]...)
	}
	return hs
}

// Publish sends an event to all registered handlers
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := eb.handlersFor(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	eb.logger.Debugf("Publishing event type: %s to %d handlers", event.Type(), len(handlers))

	if eb.config.AsyncProcessing {
		return eb.publishAsync(ctx, event, handlers)
	}
	// A failing handler does not stop delivery to the others
	var errs []error
	for i, handler := range handlers {
		if err := eb.executeHandler(ctx, event, handler, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (eb *EventBus) publishAsync(ctx context.Context, event Event, handlers []Handler) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))

	for i, handler := range handlers {
		wg.Add(1)
		go func(h Handler, idx int) {
			defer wg.Done()
			if err := eb.executeHandler(ctx, event, h, idx); err != nil {
				errCh <- err
			}
		}(handler, i)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// executeHandler runs a handler, retrying up to MaxRetries times
func (eb *EventBus) executeHandler(ctx context.Context, event Event, handler Handler, handlerIndex int) error {
	var lastErr error

	for attempt := 0; attempt <= eb.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(eb.config.RetryDelay):
			}
		}

		if err := handler(ctx, event); err != nil {
			lastErr = err
			eb.logger.Warnf("Handler %d failed for event %s (attempt %d): %v", handlerIndex, event.Type(), attempt+1, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("handler failed after %d attempts: %w", eb.config.MaxRetries+1, lastErr)
}

// PublishAndForget publishes in the background. The event outlives the
// caller's request, so cancellation of ctx is not propagated.
func (eb *EventBus) PublishAndForget(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		if err := eb.Publish(detached, event); err != nil {
			eb.logger.Errorf("Failed to publish event %s: %v", event.Type(), err)
		}
	}()
}

// Drain waits for background publishes started with PublishAndForget
func (eb *EventBus) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Unsubscribe removes all handlers for a specific event type
func (eb *EventBus) Unsubscribe(eventType string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.handlers, eventType)
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event interface
type BasicEvent struct {
	EventType string      `json:"type"`
	Payload   interface{} `json:"data"`
	At        time.Time   `json:"timestamp"`
	Origin    string      `json:"source"`
}

// NewBasicEvent creates an event stamped with the current time
func NewBasicEvent(eventType string, data interface{}, source string) *BasicEvent {
	return &BasicEvent{
		EventType: eventType,
		Payload:   data,
		At:        time.Now().UTC(),
		Origin:    source,
	}
}

func (e *BasicEvent) Type() string         { return e.EventType }
func (e *BasicEvent) Data() interface{}    { return e.Payload }
func (e *BasicEvent) Timestamp() time.Time { return e.At }
func (e *BasicEvent) Source() string       { return e.Origin }

var _ Publisher = (*EventBus)(nil)
