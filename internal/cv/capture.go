package cv

import (
	"fmt"
	"image"

	"jordanella.com/tower-pilot/internal/logging"
)

// FrameSource produces a still image of an arbitrary screen rectangle
type FrameSource interface {
	Grab(rect image.Rectangle) (*image.RGBA, error)
}

// WindowLocator resolves a window title to its client area on screen
type WindowLocator interface {
	Locate(title string) (ScreenRect, error)
}

// Frame is one captured image of a window, tagged with where it came from
type Frame struct {
	Image *image.RGBA
	Rect  ScreenRect
}

// Width returns the frame width in pixels
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels
func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Empty reports whether there is nothing to analyze in this frame
func (f *Frame) Empty() bool {
	return f.Width() == 0 || f.Height() == 0
}

// FrameCapture grabs the current contents of a titled window
type FrameCapture struct {
	locator WindowLocator
	source  FrameSource
	logger  *logging.Logger
}

// NewFrameCapture creates a capture stage
func NewFrameCapture(locator WindowLocator, source FrameSource, logger *logging.Logger) *FrameCapture {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FrameCapture{
		locator: locator,
		source:  source,
		logger:  logger,
	}
}

// Capture locates the window and grabs its client area.
// A missing window yields an empty frame, not an error.
func (c *FrameCapture) Capture(title string) (*Frame, error) {
	rect, err := c.locator.Locate(title)
	if err != nil {
		return nil, fmt.Errorf("failed to locate window %q: %w", title, err)
	}

	if rect.IsZero() || rect.Empty() {
		c.logger.DebugWithContext("Degenerate window rect, returning empty frame", map[string]interface{}{
			"window": title,
			"rect":   rect.String(),
		})
		return &Frame{Image: image.NewRGBA(image.Rectangle{}), Rect: rect}, nil
	}

	img, err := c.source.Grab(rect.GrabRectangle())
	if err != nil {
		return nil, fmt.Errorf("failed to grab %s: %w", rect, err)
	}

	// Normalize origin so window-local coordinates start at (0,0)
	if img.Rect.Min != (image.Point{}) {
		img = rebase(img)
	}

	c.logger.DebugWithContext("Captured frame", map[string]interface{}{
		"width":  img.Rect.Dx(),
		"height": img.Rect.Dy(),
	})

	return &Frame{Image: img, Rect: rect}, nil
}

func rebase(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src[:b.Dx()*4])
	}
	return out
}
