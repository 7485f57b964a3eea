package cv

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenshotSource grabs screen regions through the platform screenshot API
type ScreenshotSource struct{}

// NewScreenshotSource creates a FrameSource backed by kbinani/screenshot
func NewScreenshotSource() *ScreenshotSource {
	return &ScreenshotSource{}
}

// Grab captures the given absolute screen rectangle
func (ScreenshotSource) Grab(rect image.Rectangle) (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active displays")
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return img, nil
}
