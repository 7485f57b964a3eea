// Package window resolves application windows to screen rectangles.
package window

import (
	"errors"
	"fmt"
	"image"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/logging"
)

// ErrUnsupported is returned by the window system on platforms without a backend
var ErrUnsupported = errors.New("window system not supported on this platform")

// Handle is an opaque native window handle
type Handle uintptr

// System is the OS windowing facility the locator depends on
type System interface {
	// FindWindow looks a top-level window up by exact title
	FindWindow(title string) (Handle, bool, error)
	// RaiseToForeground is best effort
	RaiseToForeground(h Handle) error
	// ClientRect returns the client area relative to the window (left, top, right, bottom)
	ClientRect(h Handle) (image.Rectangle, error)
	// ClientToScreen converts a client-relative point to absolute screen coordinates
	ClientToScreen(h Handle, p image.Point) (image.Point, error)
}

// Locator resolves window titles to absolute client rectangles
type Locator struct {
	system System
	logger *logging.Logger
}

// NewLocator creates a window locator
func NewLocator(system System, logger *logging.Logger) *Locator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Locator{system: system, logger: logger}
}

// Locate finds the window, raises it and returns its client area in screen
// coordinates. A window that does not exist yields the zero rect and no error.
func (l *Locator) Locate(title string) (cv.ScreenRect, error) {
	h, found, err := l.system.FindWindow(title)
	if err != nil {
		return cv.ScreenRect{}, fmt.Errorf("find window: %w", err)
	}
	if !found {
		l.logger.WarnWithContext("Window not found", map[string]interface{}{"window": title})
		return cv.ScreenRect{}, nil
	}

	if err := l.system.RaiseToForeground(h); err != nil {
		l.logger.WarnWithContext("Setting window to foreground failed", map[string]interface{}{
			"window": title,
			"error":  err.Error(),
		})
	}

	client, err := l.system.ClientRect(h)
	if err != nil {
		return cv.ScreenRect{}, fmt.Errorf("client rect of %q: %w", title, err)
	}

	topLeft, err := l.system.ClientToScreen(h, client.Min)
	if err != nil {
		return cv.ScreenRect{}, fmt.Errorf("client to screen (top-left) of %q: %w", title, err)
	}
	bottomRight, err := l.system.ClientToScreen(h, client.Max)
	if err != nil {
		return cv.ScreenRect{}, fmt.Errorf("client to screen (bottom-right) of %q: %w", title, err)
	}

	rect := cv.ScreenRect{TopLeft: topLeft, BottomRight: bottomRight}
	if !rect.Valid() {
		return cv.ScreenRect{}, fmt.Errorf("window %q reported inverted rect %s", title, rect)
	}

	l.logger.DebugWithContext("Located window", map[string]interface{}{
		"window":       title,
		"top_left":     topLeft.String(),
		"bottom_right": bottomRight.String(),
	})

	return rect, nil
}
