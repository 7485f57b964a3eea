package window

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/logging"
)

// fakeSystem places one window with a 640x480 client area at a screen offset
type fakeSystem struct {
	title    string
	origin   image.Point
	raiseErr error
	rectErr  error
	raised   int
}

func (f *fakeSystem) FindWindow(title string) (Handle, bool, error) {
	if title != f.title {
		return 0, false, nil
	}
	return Handle(42), true, nil
}

func (f *fakeSystem) RaiseToForeground(Handle) error {
	f.raised++
	return f.raiseErr
}

func (f *fakeSystem) ClientRect(Handle) (image.Rectangle, error) {
	if f.rectErr != nil {
		return image.Rectangle{}, f.rectErr
	}
	return image.Rect(0, 0, 640, 480), nil
}

func (f *fakeSystem) ClientToScreen(_ Handle, p image.Point) (image.Point, error) {
	return p.Add(f.origin), nil
}

func TestLocatorLocate(t *testing.T) {
	system := &fakeSystem{title: "Infinitode 2", origin: image.Pt(100, 50)}
	locator := NewLocator(system, nil)

	rect, err := locator.Locate("Infinitode 2")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	if want := cv.NewScreenRect(100, 50, 740, 530); rect != want {
		t.Errorf("got %v, want %v", rect, want)
	}
	if system.raised != 1 {
		t.Errorf("expected window to be raised once, got %d", system.raised)
	}
}

func TestLocatorWindowNotFound(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("test", logging.Options{Writer: &buf, Level: logging.LogLevelDebug, NoColor: true})
	locator := NewLocator(&fakeSystem{title: "Other"}, logger)

	rect, err := locator.Locate("Infinitode 2")
	if err != nil {
		t.Fatalf("missing window must not be an error: %v", err)
	}
	if !rect.IsZero() {
		t.Errorf("expected zero rect, got %v", rect)
	}
	if !strings.Contains(buf.String(), "Window not found") {
		t.Errorf("expected warning to be logged, got %q", buf.String())
	}
}

func TestLocatorRaiseFailureIsNonFatal(t *testing.T) {
	system := &fakeSystem{title: "w", raiseErr: errors.New("access denied")}

	rect, err := NewLocator(system, nil).Locate("w")
	if err != nil {
		t.Fatalf("raise failure must be ignored: %v", err)
	}
	if rect.IsZero() {
		t.Error("expected a located rect despite raise failure")
	}
}

func TestLocatorSystemFailure(t *testing.T) {
	boom := errors.New("invalid handle")
	system := &fakeSystem{title: "w", rectErr: boom}

	_, err := NewLocator(system, nil).Locate("w")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped system error, got %v", err)
	}
}
