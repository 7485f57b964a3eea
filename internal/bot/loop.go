package bot

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/events"
	"jordanella.com/tower-pilot/internal/logging"
)

// DefaultInterval is the pause between cycles
const DefaultInterval = 5 * time.Second

// Analyzer captures a window and searches it for a symbol
type Analyzer interface {
	Analyze(window, symbol string) (*cv.Analysis, error)
}

// Dispatcher performs the pointer action for a resolved coordinate
type Dispatcher interface {
	Act(title string, coord *cv.ScreenCoordinate) (*cv.ScreenCoordinate, error)
}

// LoopConfig configures the recognition loop
type LoopConfig struct {
	RunID    string // Generated when empty
	Window   string
	Symbol   string
	Interval time.Duration
	// PublishFrames attaches the highlighted frame to frame.analyzed events
	PublishFrames bool
}

// Loop repeatedly finds a symbol in a window and clicks it
type Loop struct {
	config     LoopConfig
	analyzer   Analyzer
	mapper     *CoordinateMapper
	dispatcher Dispatcher
	bus        events.EventBus
	logger     *logging.Logger

	state loopState
	cycle int64
}

// NewLoop creates a recognition loop in the RUNNING state. bus may be nil.
func NewLoop(config LoopConfig, analyzer Analyzer, dispatcher Dispatcher, bus events.EventBus, logger *logging.Logger) *Loop {
	if config.RunID == "" {
		config.RunID = uuid.New().String()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loop{
		config:     config,
		analyzer:   analyzer,
		mapper:     NewCoordinateMapper(),
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logger,
	}
}

// RunID identifies this loop's run in events and the journal
func (l *Loop) RunID() string {
	return l.config.RunID
}

// State returns the current lifecycle state
func (l *Loop) State() LoopState {
	return l.state.Get()
}

// Run executes cycles until ctx is cancelled. Cancellation is only observed
// between cycles, so a cycle in progress always completes.
func (l *Loop) Run(ctx context.Context) error {
	if l.State() == StateStopped {
		return fmt.Errorf("loop %s already stopped", l.config.RunID)
	}

	l.logger.InfoWithContext("Recognition loop started", map[string]interface{}{
		"run_id":   l.config.RunID,
		"window":   l.config.Window,
		"symbol":   l.config.Symbol,
		"interval": l.config.Interval.String(),
	})
	l.publish(events.NewLoopEvent(events.EventTypeLoopStarted, l.config.RunID, l.config.Window, l.config.Symbol))

	defer func() {
		l.state.Stop()
		l.logger.InfoWithContext("Recognition loop stopped", map[string]interface{}{
			"run_id": l.config.RunID,
			"cycles": l.cycle,
		})
		l.publish(events.NewLoopEvent(events.EventTypeLoopStopped, l.config.RunID, l.config.Window, l.config.Symbol))
	}()

	for {
		// Failures are reported through logs and events; the loop keeps going
		l.RunCycle()

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.config.Interval):
		}
	}
}

// RunCycle executes exactly one capture, match and dispatch pass
func (l *Loop) RunCycle() CycleResult {
	l.cycle++
	start := time.Now()
	result := l.runCycle(l.cycle)
	result.Duration = time.Since(start)

	if result.Err != nil {
		l.logger.ErrorWithContext("Cycle failed", result.Err, map[string]interface{}{"cycle": result.Cycle})
		l.publish(events.NewCycleEvent(events.EventTypeCycleFailed, result.Cycle, string(result.Outcome), result.data()))
		return result
	}

	l.logger.DebugWithContext("Cycle completed", map[string]interface{}{
		"cycle":       result.Cycle,
		"outcome":     string(result.Outcome),
		"duration_ms": result.Duration.Milliseconds(),
	})
	l.publish(events.NewCycleEvent(events.EventTypeCycleCompleted, result.Cycle, string(result.Outcome), result.data()))
	return result
}

func (l *Loop) runCycle(cycle int64) CycleResult {
	result := CycleResult{Cycle: cycle}
	fail := func(err error) CycleResult {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	analysis, err := l.analyzer.Analyze(l.config.Window, l.config.Symbol)
	if err != nil {
		return fail(fmt.Errorf("analyze: %w", err))
	}

	if analysis.Frame != nil {
		result.Window = analysis.Frame.Rect
		result.FrameSize = image.Pt(analysis.Frame.Width(), analysis.Frame.Height())
	}
	if analysis.Frame.Empty() {
		l.logger.WarnWithContext("Window not available, skipping cycle", map[string]interface{}{
			"window": l.config.Window,
			"cycle":  cycle,
		})
		l.publish(events.NewCycleEvent(events.EventTypeWindowMissing, cycle, string(OutcomeWindowMissing), nil))
		result.Outcome = OutcomeWindowMissing
		return result
	}

	size := analysis.Template.Size()
	coord := l.mapper.Map(analysis.Matches, size, result.Window)
	match, _ := First(analysis.Matches)
	found := coord != nil
	l.publishFrame(cycle, analysis, match, found)

	if !found {
		l.logger.WarnWithContext("Symbol not found", map[string]interface{}{
			"symbol": l.config.Symbol,
			"cycle":  cycle,
			"ratio":  analysis.Template.Ratio,
		})
		l.publish(events.NewCycleEvent(events.EventTypeSymbolMissing, cycle, string(OutcomeNoMatch), nil))
		result.Outcome = OutcomeNoMatch
		return result
	}

	result.Match = &match
	l.logger.InfoWithContext("Symbol found", map[string]interface{}{
		"symbol":     l.config.Symbol,
		"x":          coord.X,
		"y":          coord.Y,
		"confidence": fmt.Sprintf("%.3f", match.Confidence),
	})
	l.publish(events.NewCycleEvent(events.EventTypeSymbolMatched, cycle, "", map[string]interface{}{
		"x":          coord.X,
		"y":          coord.Y,
		"confidence": match.Confidence,
	}))

	clicked, err := l.dispatcher.Act(l.config.Window, coord)
	if err != nil {
		return fail(fmt.Errorf("dispatch: %w", err))
	}
	if clicked == nil {
		result.Outcome = OutcomeSkipped
		return result
	}

	result.Coordinate = clicked
	result.Outcome = OutcomeDispatched
	l.publish(events.NewCycleEvent(events.EventTypeActionDispatched, cycle, string(OutcomeDispatched), map[string]interface{}{
		"x": clicked.X,
		"y": clicked.Y,
	}))
	return result
}

func (l *Loop) publishFrame(cycle int64, analysis *cv.Analysis, match cv.Match, found bool) {
	if !l.config.PublishFrames || l.bus == nil {
		return
	}

	frame := analysis.Frame.Image
	if found {
		frame = cv.Highlight(frame, match, analysis.Template.Size())
	}
	l.publish(events.NewCycleEvent(events.EventTypeFrameAnalyzed, cycle, "", map[string]interface{}{
		"frame": frame,
		"found": found,
	}))
}

func (l *Loop) publish(event events.Event) {
	if l.bus != nil {
		l.bus.Publish(event)
	}
}
