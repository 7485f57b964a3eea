// Package gui provides the optional debug viewer that shows what the
// recognition loop sees.
package gui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/tower-pilot/internal/events"
)

// maxEntries bounds the cycle history list
const maxEntries = 200

// Viewer displays the last analyzed frame with its match highlighted and a
// scrolling history of cycle outcomes
type Viewer struct {
	app    fyne.App
	window fyne.Window

	frame     *canvas.Image
	indicator *canvas.Circle
	status    *widget.Label
	history   *widget.List

	mu      sync.Mutex
	entries []string
	last    image.Image
	subs    []events.SubscriptionID
	bus     events.EventBus
}

// NewViewer builds the viewer window. Closing it calls cancel.
func NewViewer(app fyne.App, title string, cancel context.CancelFunc) *Viewer {
	v := &Viewer{app: app}

	v.frame = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	v.frame.FillMode = canvas.ImageFillContain
	v.frame.SetMinSize(frameMinSize)

	v.indicator = canvas.NewCircle(color.Transparent)
	v.indicator.Resize(fyne.NewSize(12, 12))
	v.status = widget.NewLabel("Waiting for first cycle")
	v.history = widget.NewList(
		func() int {
			v.mu.Lock()
			defer v.mu.Unlock()
			return len(v.entries)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			v.mu.Lock()
			defer v.mu.Unlock()
			if id < len(v.entries) {
				obj.(*widget.Label).SetText(v.entries[id])
			}
		},
	)

	split := container.NewVSplit(v.frame, v.history)
	split.Offset = 0.8

	v.window = app.NewWindow(title)
	v.window.Resize(DefaultWindowSize)
	header := container.NewBorder(nil, nil, container.NewGridWrap(fyne.NewSize(12, 12), v.indicator), nil, v.status)
	v.window.SetContent(container.NewBorder(header, nil, nil, nil, split))
	v.window.SetOnClosed(cancel)

	return v
}

// Attach subscribes the viewer to loop events
func (v *Viewer) Attach(bus events.EventBus) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.bus = bus
	v.subs = append(v.subs,
		bus.Subscribe(events.EventTypeFrameAnalyzed, v.onFrame),
		bus.Subscribe(events.EventTypeCycleCompleted, v.onCycle),
		bus.Subscribe(events.EventTypeCycleFailed, v.onCycle),
		bus.Subscribe(events.EventTypeLoopStopped, v.onStopped),
	)
}

// Detach removes the viewer's subscriptions
func (v *Viewer) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, id := range v.subs {
		v.bus.Unsubscribe(id)
	}
	v.subs = nil
}

// ShowAndRun shows the window and runs the fyne event loop on the calling goroutine
func (v *Viewer) ShowAndRun() {
	v.window.ShowAndRun()
}

// Quit closes the viewer from any goroutine
func (v *Viewer) Quit() {
	fyne.Do(v.app.Quit)
}

// Entries returns a copy of the cycle history
func (v *Viewer) Entries() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.entries...)
}

// LastFrame returns the most recently displayed frame
func (v *Viewer) LastFrame() image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

func (v *Viewer) onFrame(e events.Event) {
	img, ok := e.Data["frame"].(image.Image)
	if !ok {
		return
	}

	v.mu.Lock()
	v.last = img
	v.mu.Unlock()

	fyne.Do(func() {
		v.frame.Image = img
		v.frame.Refresh()
	})
}

func (v *Viewer) onCycle(e events.Event) {
	line := FormatCycle(e)
	outcome, _ := e.Data["outcome"].(string)

	v.mu.Lock()
	v.entries = append(v.entries, line)
	if len(v.entries) > maxEntries {
		v.entries = v.entries[len(v.entries)-maxEntries:]
	}
	v.mu.Unlock()

	fyne.Do(func() {
		v.status.SetText(line)
		v.indicator.FillColor = OutcomeColor(outcome)
		v.indicator.Refresh()
		v.history.Refresh()
		v.history.ScrollToBottom()
	})
}

func (v *Viewer) onStopped(events.Event) {
	fyne.Do(func() {
		v.status.SetText("Stopped")
	})
}

// FormatCycle renders a cycle event as one history line
func FormatCycle(e events.Event) string {
	cycle, _ := e.Data["cycle"].(int64)
	outcome, _ := e.Data["outcome"].(string)
	line := fmt.Sprintf("%s  #%d  %s", e.Timestamp.Format("15:04:05"), cycle, outcome)

	if x, ok := e.Data["x"].(int); ok {
		y, _ := e.Data["y"].(int)
		line += fmt.Sprintf("  at (%d,%d)", x, y)
	}
	if c, ok := e.Data["confidence"].(float64); ok {
		line += fmt.Sprintf("  conf %.3f", c)
	}
	if msg, ok := e.Data["error"].(string); ok {
		line += "  error: " + msg
	}
	return line
}
