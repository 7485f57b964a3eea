package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/tower-pilot/internal/events"
)

// EventLogger subscribes to the event bus and mirrors every event into a log file
type EventLogger struct {
	logger          *Logger
	eventBus        events.EventBus
	subscriptionIDs []events.SubscriptionID
	logFile         *os.File
}

// NewEventLogger creates a new event logger writing events_<timestamp>.log under logDir
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	// File only: the console already carries the pipeline's own logs
	logger := &Logger{component: "EventLogger", sink: &sink{}}
	logger.SetMinLevel(LogLevelDebug)
	logger.AddOutput(logFile)

	el := &EventLogger{
		logger:   logger,
		eventBus: eventBus,
		logFile:  logFile,
	}

	for _, eventType := range events.AllEventTypes {
		el.subscriptionIDs = append(el.subscriptionIDs, eventBus.Subscribe(eventType, el.handleEvent))
	}

	return el, nil
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}

	for k, v := range event.Data {
		// Frames are large and not printable
		if k == "frame" {
			continue
		}
		context[k] = v
	}

	el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
}

// Path returns the file the events are written to
func (el *EventLogger) Path() string {
	return el.logFile.Name()
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	for _, id := range el.subscriptionIDs {
		el.eventBus.Unsubscribe(id)
	}
	if el.logFile != nil {
		return el.logFile.Close()
	}
	return nil
}
