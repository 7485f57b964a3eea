package events

import (
	"fmt"
	"sync"
	"time"
)

// Logger is the subset of the logging API the bus reports through
type Logger interface {
	DebugWithContext(message string, context map[string]interface{})
	Error(message string, err error)
}

type nopLogger struct{}

func (nopLogger) DebugWithContext(string, map[string]interface{}) {}
func (nopLogger) Error(string, error)                            {}

// subscription represents a single event subscription
type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// DefaultEventBus is the default implementation of EventBus.
// Events are delivered in publish order on a single dispatcher goroutine.
type DefaultEventBus struct {
	// Subscriber management
	subscribers map[EventType][]subscription
	mu          sync.RWMutex

	// Event queue
	eventQueue chan Event
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	// Subscription ID generator
	nextSubID SubscriptionID

	logger Logger
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int, logger Logger) *DefaultEventBus {
	if logger == nil {
		logger = nopLogger{}
	}
	bus := &DefaultEventBus{
		subscribers: make(map[EventType][]subscription),
		eventQueue:  make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		nextSubID:   1,
		logger:      logger,
	}

	// Start event processor
	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type
func (eb *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subID := eb.nextSubID
	eb.nextSubID++

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{
		id:      subID,
		handler: handler,
	})

	return subID
}

// SubscribeAll registers one handler for every known event type
func (eb *DefaultEventBus) SubscribeAll(handler EventHandler) []SubscriptionID {
	ids := make([]SubscriptionID, 0, len(AllEventTypes))
	for _, t := range AllEventTypes {
		ids = append(ids, eb.Subscribe(t, handler))
	}
	return ids
}

// Unsubscribe removes a subscription by ID
func (eb *DefaultEventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				eb.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for all subscribers
func (eb *DefaultEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-eb.stopCh:
		eb.logger.DebugWithContext("Dropped event, bus stopped", map[string]interface{}{"type": event.Type})
		return
	default:
	}

	select {
	case eb.eventQueue <- event:
	case <-eb.stopCh:
		eb.logger.DebugWithContext("Dropped event, bus stopped", map[string]interface{}{"type": event.Type})
	}
}

// Stop stops the event bus and drains remaining events. Safe to call twice.
func (eb *DefaultEventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.stopCh)
	})
	eb.wg.Wait()
}

// processEvents runs in a goroutine and dispatches events to handlers
func (eb *DefaultEventBus) processEvents() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventQueue:
			eb.dispatch(event)

		case <-eb.stopCh:
			// Drain remaining events before stopping
			for {
				select {
				case event := <-eb.eventQueue:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// dispatch sends an event to all registered handlers in subscription order
func (eb *DefaultEventBus) dispatch(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	handlers := make([]EventHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		eb.safeHandlerCall(handler, event)
	}
}

// safeHandlerCall calls a handler with panic recovery
func (eb *DefaultEventBus) safeHandlerCall(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error(fmt.Sprintf("Handler panic for event %s", event.Type), fmt.Errorf("%v", r))
		}
	}()

	handler(event)
}

// GetSubscriberCount returns the number of subscribers for an event type
func (eb *DefaultEventBus) GetSubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers[eventType])
}
