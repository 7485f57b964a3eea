package input

import (
	"fmt"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/logging"
)

// DefaultScrollAmount scrolls the view down after the click, in wheel units
// (about 13 notches)
const DefaultScrollAmount = -1600

// DispatcherConfig configures the click/scroll sequence
type DispatcherConfig struct {
	Button Button
	// Scroll in wheel units; 0 skips the scroll step
	Scroll int
}

// DefaultDispatcherConfig returns left click followed by a -1600 scroll
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Button: ButtonLeft, Scroll: DefaultScrollAmount}
}

// Dispatcher turns a resolved coordinate into pointer input
type Dispatcher struct {
	locator  cv.WindowLocator
	injector Injector
	config   DispatcherConfig
	logger   *logging.Logger
}

// NewDispatcher creates an action dispatcher
func NewDispatcher(locator cv.WindowLocator, injector Injector, config DispatcherConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	if config.Button == "" {
		config.Button = ButtonLeft
	}
	return &Dispatcher{
		locator:  locator,
		injector: injector,
		config:   config,
		logger:   logger,
	}
}

// Act moves to the target, clicks and scrolls. A nil target is a no-op. The
// window is looked up again first; if it is gone nothing is sent, and if it has
// moved an anchored target follows it. Targets without a window are clicked
// as given. Returns the position actually clicked.
func (d *Dispatcher) Act(title string, target *cv.ScreenCoordinate) (*cv.ScreenCoordinate, error) {
	if target == nil {
		d.logger.Warn("No coordinate to act on")
		return nil, nil
	}

	rect, err := d.locator.Locate(title)
	if err != nil {
		return nil, fmt.Errorf("re-check window: %w", err)
	}
	if rect.Empty() {
		d.logger.WarnWithContext("Window disappeared before dispatch", map[string]interface{}{"window": title})
		return nil, nil
	}

	at := target.Follow(rect)
	if at.Point() != target.Point() {
		d.logger.DebugWithContext("Window moved, re-anchoring target", map[string]interface{}{
			"from": target.Point().String(),
			"to":   at.Point().String(),
		})
	}

	if err := d.injector.MoveTo(at.X, at.Y); err != nil {
		return nil, fmt.Errorf("move to (%d,%d): %w", at.X, at.Y, err)
	}
	if err := d.injector.Click(d.config.Button); err != nil {
		return nil, fmt.Errorf("click %s: %w", d.config.Button, err)
	}
	if d.config.Scroll != 0 {
		if err := d.injector.Scroll(d.config.Scroll); err != nil {
			return nil, fmt.Errorf("scroll %d: %w", d.config.Scroll, err)
		}
	}

	d.logger.InfoWithContext("Action dispatched", map[string]interface{}{
		"x":      at.X,
		"y":      at.Y,
		"button": string(d.config.Button),
		"scroll": d.config.Scroll,
	})
	return &at, nil
}
