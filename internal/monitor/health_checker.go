// Package monitor watches the cycle stream for runs that have stopped making progress.
package monitor

import (
	"sync"
	"time"

	"jordanella.com/tower-pilot/internal/events"
	"jordanella.com/tower-pilot/internal/logging"
)

// UnhealthyCallback is called when the loop becomes unhealthy
type UnhealthyCallback func(reason string)

// HealthConfig sets the streak lengths that count as unhealthy
type HealthConfig struct {
	FailureThreshold int           // Consecutive failed cycles
	StuckTimeout     time.Duration // Time without a dispatched action
}

// DefaultHealthConfig returns conservative thresholds
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 5,
		StuckTimeout:     10 * time.Minute,
	}
}

// HealthStatus is a snapshot of the checker's counters
type HealthStatus struct {
	Cycles              int64
	ConsecutiveFailures int
	LastDispatch        time.Time
	Healthy             bool
	Reason              string
}

// HealthChecker tracks failure streaks and time since the last dispatched action.
// It only reports; stopping the loop is left to the caller.
type HealthChecker struct {
	config      HealthConfig
	logger      *logging.Logger
	onUnhealthy UnhealthyCallback

	mu                  sync.RWMutex
	cycles              int64
	consecutiveFailures int
	lastDispatch        time.Time
	unhealthyReason     string

	bus  events.EventBus
	subs []events.SubscriptionID
}

// NewHealthChecker creates a health checker
func NewHealthChecker(config HealthConfig, logger *logging.Logger) *HealthChecker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HealthChecker{
		config:       config,
		logger:       logger,
		lastDispatch: time.Now(),
	}
}

// SetUnhealthyCallback sets the callback for unhealthy transitions
func (hc *HealthChecker) SetUnhealthyCallback(callback UnhealthyCallback) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.onUnhealthy = callback
}

// Attach subscribes to cycle events
func (hc *HealthChecker) Attach(bus events.EventBus) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.bus = bus
	hc.subs = append(hc.subs,
		bus.Subscribe(events.EventTypeCycleCompleted, hc.Observe),
		bus.Subscribe(events.EventTypeCycleFailed, hc.Observe),
	)
}

// Detach removes the subscriptions
func (hc *HealthChecker) Detach() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	for _, id := range hc.subs {
		hc.bus.Unsubscribe(id)
	}
	hc.subs = nil
}

// Observe feeds one terminal cycle event into the checker
func (hc *HealthChecker) Observe(e events.Event) {
	outcome, _ := e.Data["outcome"].(string)

	hc.mu.Lock()
	hc.cycles++
	switch {
	case e.Type == events.EventTypeCycleFailed:
		hc.consecutiveFailures++
	case outcome == "dispatched":
		hc.consecutiveFailures = 0
		hc.lastDispatch = e.Timestamp
	default:
		hc.consecutiveFailures = 0
	}

	reason := hc.evaluate(e.Timestamp)
	transition := reason != "" && hc.unhealthyReason == ""
	recovered := reason == "" && hc.unhealthyReason != ""
	hc.unhealthyReason = reason
	callback := hc.onUnhealthy
	failures := hc.consecutiveFailures
	hc.mu.Unlock()

	if transition {
		hc.logger.CriticalWithContext("Recognition loop unhealthy", nil, map[string]interface{}{
			"reason":   reason,
			"failures": failures,
		})
		if callback != nil {
			callback(reason)
		}
	}
	if recovered {
		hc.logger.Info("Recognition loop recovered")
	}
}

// evaluate returns the unhealthy reason, or "" (caller must hold lock)
func (hc *HealthChecker) evaluate(now time.Time) string {
	if hc.config.FailureThreshold > 0 && hc.consecutiveFailures >= hc.config.FailureThreshold {
		return "consecutive cycle failures"
	}
	if hc.config.StuckTimeout > 0 && now.Sub(hc.lastDispatch) >= hc.config.StuckTimeout {
		return "no action dispatched within timeout"
	}
	return ""
}

// Status returns the current counters
func (hc *HealthChecker) Status() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	return HealthStatus{
		Cycles:              hc.cycles,
		ConsecutiveFailures: hc.consecutiveFailures,
		LastDispatch:        hc.lastDispatch,
		Healthy:             hc.unhealthyReason == "",
		Reason:              hc.unhealthyReason,
	}
}
