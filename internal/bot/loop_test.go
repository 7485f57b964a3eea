package bot

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/events"
)

// Fakes

type fakeAnalyzer struct {
	analysis *cv.Analysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(string, string) (*cv.Analysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakeDispatcher struct {
	mu      sync.Mutex
	targets []cv.ScreenCoordinate
	skip    bool
	err     error
	onAct   func()
}

func (f *fakeDispatcher) Act(_ string, coord *cv.ScreenCoordinate) (*cv.ScreenCoordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onAct != nil {
		f.onAct()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.skip || coord == nil {
		return nil, nil
	}
	f.targets = append(f.targets, *coord)
	return coord, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Subscribe(events.EventType, events.EventHandler) events.SubscriptionID {
	return 0
}

func (b *recordingBus) Unsubscribe(events.SubscriptionID) {}

func (b *recordingBus) Stop() {}

func (b *recordingBus) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.EventType
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fixedLocator struct{ rect cv.ScreenRect }

func (f fixedLocator) Locate(string) (cv.ScreenRect, error) { return f.rect, nil }

type fixedSource struct{ img *image.RGBA }

func (f fixedSource) Grab(image.Rectangle) (*image.RGBA, error) { return f.img, nil }

type mapLoader map[string]cv.Template

func (m mapLoader) Load(name string) (cv.Template, error) {
	t, ok := m[name]
	if !ok {
		return cv.Template{}, errors.New("unknown symbol")
	}
	return t, nil
}

// Helpers

func analysisWith(window cv.ScreenRect, matches ...cv.Match) *cv.Analysis {
	frame := &cv.Frame{Image: image.NewRGBA(image.Rect(0, 0, window.Width(), window.Height())), Rect: window}
	return &cv.Analysis{
		Frame:    frame,
		Template: &cv.ScaledTemplate{Name: "newgame", Gray: image.NewGray(image.Rect(0, 0, 40, 40)), Ratio: 1},
		Matches:  slices.Values(matches),
	}
}

func noiseFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// Tests

func TestRunCycleDispatchesFirstMatch(t *testing.T) {
	window := cv.NewScreenRect(100, 50, 740, 530)
	analyzer := &fakeAnalyzer{analysis: analysisWith(window,
		cv.Match{TopLeft: image.Pt(20, 30), Confidence: 0.8},
		cv.Match{TopLeft: image.Pt(300, 300), Confidence: 0.95},
	)}
	dispatcher := &fakeDispatcher{}
	bus := &recordingBus{}

	loop := NewLoop(LoopConfig{Window: "game", Symbol: "newgame"}, analyzer, dispatcher, bus, nil)
	result := loop.RunCycle()

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Outcome != OutcomeDispatched {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeDispatched)
	}
	if len(dispatcher.targets) != 1 || dispatcher.targets[0].Point() != image.Pt(140, 100) {
		t.Errorf("dispatched %v, want one click at (140,100)", dispatcher.targets)
	}

	want := []events.EventType{
		events.EventTypeSymbolMatched,
		events.EventTypeActionDispatched,
		events.EventTypeCycleCompleted,
	}
	if got := bus.types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRunCycleShortCircuits(t *testing.T) {
	tests := []struct {
		name     string
		analysis *cv.Analysis
		outcome  Outcome
		event    events.EventType
	}{
		{
			name:     "degenerate window",
			analysis: &cv.Analysis{Frame: &cv.Frame{Image: image.NewRGBA(image.Rectangle{})}},
			outcome:  OutcomeWindowMissing,
			event:    events.EventTypeWindowMissing,
		},
		{
			name:     "no match",
			analysis: analysisWith(cv.NewScreenRect(0, 0, 640, 480)),
			outcome:  OutcomeNoMatch,
			event:    events.EventTypeSymbolMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &fakeDispatcher{}
			bus := &recordingBus{}
			loop := NewLoop(LoopConfig{Window: "game", Symbol: "newgame"}, &fakeAnalyzer{analysis: tt.analysis}, dispatcher, bus, nil)

			result := loop.RunCycle()
			if result.Err != nil {
				t.Fatalf("short circuit must not fail: %v", result.Err)
			}
			if result.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", result.Outcome, tt.outcome)
			}
			if dispatcher.count() != 0 {
				t.Error("no input expected")
			}
			if got := bus.types(); !slices.Equal(got, []events.EventType{tt.event, events.EventTypeCycleCompleted}) {
				t.Errorf("events = %v", got)
			}
		})
	}
}

func TestRunCycleWindowVanishedBeforeDispatch(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: analysisWith(cv.NewScreenRect(0, 0, 640, 480), cv.Match{Confidence: 1})}
	loop := NewLoop(LoopConfig{}, analyzer, &fakeDispatcher{skip: true}, nil, nil)

	if result := loop.RunCycle(); result.Outcome != OutcomeSkipped || result.Coordinate != nil {
		t.Errorf("got %+v, want skipped without coordinate", result)
	}
}

func TestRunCyclePreconditionFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: cv.ErrInvalidFrameHeight}
	bus := &recordingBus{}
	loop := NewLoop(LoopConfig{}, analyzer, &fakeDispatcher{}, bus, nil)

	result := loop.RunCycle()
	if !errors.Is(result.Err, cv.ErrInvalidFrameHeight) {
		t.Errorf("expected precondition error, got %v", result.Err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s", result.Outcome)
	}
	if got := bus.types(); !slices.Equal(got, []events.EventType{events.EventTypeCycleFailed}) {
		t.Errorf("events = %v", got)
	}
	if loop.State() != StateRunning {
		t.Error("a failed cycle must not stop the loop")
	}
}

func TestRunCycleIdempotent(t *testing.T) {
	window := cv.NewScreenRect(100, 50, 740, 530)
	analyzer := &fakeAnalyzer{analysis: analysisWith(window, cv.Match{TopLeft: image.Pt(20, 30), Confidence: 0.9})}
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(LoopConfig{}, analyzer, dispatcher, nil, nil)

	for i := 0; i < 3; i++ {
		if result := loop.RunCycle(); result.Cycle != int64(i+1) || result.Outcome != OutcomeDispatched {
			t.Fatalf("cycle %d: %+v", i, result)
		}
	}
	for _, target := range dispatcher.targets {
		if target != dispatcher.targets[0] {
			t.Errorf("cycles on the same screen must click the same point: %v", dispatcher.targets)
		}
	}
	want := cv.ScreenCoordinate{X: 140, Y: 100, Window: window}
	if dispatcher.targets[0] != want {
		t.Errorf("dispatched %+v, want %+v anchored to the capture window", dispatcher.targets[0], want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer := &fakeAnalyzer{analysis: analysisWith(cv.NewScreenRect(0, 0, 640, 480), cv.Match{Confidence: 1})}
	dispatcher := &fakeDispatcher{}
	dispatcher.onAct = func() {
		if len(dispatcher.targets) == 1 {
			cancel()
		}
	}
	bus := &recordingBus{}
	loop := NewLoop(LoopConfig{Interval: time.Millisecond}, analyzer, dispatcher, bus, nil)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}

	// The cycle in flight when cancel fired still completes
	if got := dispatcher.count(); got != 2 {
		t.Errorf("dispatched %d times, want 2", got)
	}
	if loop.State() != StateStopped {
		t.Errorf("state = %s, want STOPPED", loop.State())
	}
	types := bus.types()
	if types[0] != events.EventTypeLoopStarted || types[len(types)-1] != events.EventTypeLoopStopped {
		t.Errorf("unexpected lifecycle events: %v", types)
	}
	if err := loop.Run(context.Background()); err == nil {
		t.Error("a stopped loop must not restart")
	}
}

func TestRunKeepsGoingAfterFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer := &fakeAnalyzer{err: cv.ErrTemplateVanished}
	bus := &recordingBus{}
	loop := NewLoop(LoopConfig{Interval: time.Millisecond}, analyzer, &fakeDispatcher{}, bus, nil)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		failed := 0
		for _, typ := range bus.types() {
			if typ == events.EventTypeCycleFailed {
				failed++
			}
		}
		if failed >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop stopped cycling after a failure")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestLoopEndToEnd(t *testing.T) {
	frame := noiseFrame(200, 150, 7)
	tmpl := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			tmpl.SetRGBA(x, y, frame.RGBAAt(20+x, 30+y))
		}
	}

	window := cv.NewScreenRect(100, 50, 300, 200)
	capture := cv.NewFrameCapture(fixedLocator{rect: window}, fixedSource{img: frame}, nil)
	loader := mapLoader{"newgame": {Name: "newgame", Bitmap: tmpl, ReferenceHeight: 150}}
	service := cv.NewService(capture, loader, cv.NewTemplateScaler(nil), cv.NewMatcher(nil), nil)

	dispatcher := &fakeDispatcher{}
	bus := &recordingBus{}
	loop := NewLoop(LoopConfig{Window: "game", Symbol: "newgame", PublishFrames: true}, service, dispatcher, bus, nil)

	// Two cycles over the same screen run the whole pipeline twice
	for i := 1; i <= 2; i++ {
		result := loop.RunCycle()
		if result.Err != nil {
			t.Fatalf("cycle %d failed: %v", i, result.Err)
		}
		if result.Match == nil || result.Match.TopLeft != image.Pt(20, 30) {
			t.Fatalf("cycle %d: match = %v, want (20,30)", i, result.Match)
		}
		if result.Coordinate.Point() != image.Pt(140, 100) {
			t.Errorf("cycle %d: clicked %v, want (140,100)", i, result.Coordinate.Point())
		}
	}
	if types := bus.types(); types[0] != events.EventTypeFrameAnalyzed {
		t.Errorf("expected frame event first, got %v", types)
	}
	if len(dispatcher.targets) != 2 || dispatcher.targets[0] != dispatcher.targets[1] {
		t.Errorf("repeated cycles must dispatch identical coordinates: %v", dispatcher.targets)
	}
}

func TestLoopMissingTemplateFails(t *testing.T) {
	capture := cv.NewFrameCapture(fixedLocator{rect: cv.NewScreenRect(0, 0, 50, 50)}, fixedSource{img: noiseFrame(50, 50, 1)}, nil)
	service := cv.NewService(capture, mapLoader{}, cv.NewTemplateScaler(nil), cv.NewMatcher(nil), nil)

	result := NewLoop(LoopConfig{Symbol: "newgame"}, service, &fakeDispatcher{}, nil, nil).RunCycle()
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", result.Outcome)
	}
}

func TestLoopGeneratesRunID(t *testing.T) {
	a := NewLoop(LoopConfig{}, &fakeAnalyzer{}, &fakeDispatcher{}, nil, nil)
	b := NewLoop(LoopConfig{}, &fakeAnalyzer{}, &fakeDispatcher{}, nil, nil)
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("expected distinct generated run ids, got %q and %q", a.RunID(), b.RunID())
	}
	if c := NewLoop(LoopConfig{RunID: "fixed"}, &fakeAnalyzer{}, &fakeDispatcher{}, nil, nil); c.RunID() != "fixed" {
		t.Errorf("run id = %q", c.RunID())
	}
}
