package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Loop lifecycle events
	EventTypeLoopStarted EventType = "loop.started"
	EventTypeLoopStopped EventType = "loop.stopped"

	// Cycle events, one terminal event per cycle
	EventTypeCycleCompleted EventType = "cycle.completed"
	EventTypeCycleFailed    EventType = "cycle.failed"

	// Pipeline stage events
	EventTypeWindowMissing    EventType = "window.missing"
	EventTypeFrameAnalyzed    EventType = "frame.analyzed"
	EventTypeSymbolMatched    EventType = "symbol.matched"
	EventTypeSymbolMissing    EventType = "symbol.missing"
	EventTypeActionDispatched EventType = "action.dispatched"
)

// AllEventTypes lists every event type, for subscribers that want the full stream
var AllEventTypes = []EventType{
	EventTypeLoopStarted,
	EventTypeLoopStopped,
	EventTypeCycleCompleted,
	EventTypeCycleFailed,
	EventTypeWindowMissing,
	EventTypeFrameAnalyzed,
	EventTypeSymbolMatched,
	EventTypeSymbolMissing,
	EventTypeActionDispatched,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "loop", "dispatcher")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish queues an event for delivery (blocking while the queue is full)
	Publish(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// NewCycleEvent creates a terminal cycle event
func NewCycleEvent(eventType EventType, cycle int64, outcome string, data map[string]interface{}) Event {
	payload := map[string]interface{}{
		"cycle":   cycle,
		"outcome": outcome,
	}
	for k, v := range data {
		payload[k] = v
	}
	return Event{
		Type:      eventType,
		Source:    "loop",
		Timestamp: time.Now(),
		Data:      payload,
	}
}

// NewLoopEvent creates a loop started/stopped event
func NewLoopEvent(eventType EventType, runID, window, symbol string) Event {
	return Event{
		Type:      eventType,
		Source:    "loop",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"window": window,
			"symbol": symbol,
		},
	}
}
