package cv

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"jordanella.com/tower-pilot/internal/logging"
)

var (
	// ErrInvalidFrameHeight means the scaler was asked to target a zero or negative height
	ErrInvalidFrameHeight = errors.New("frame height must be positive")
	// ErrInvalidReference means a template has no usable reference resolution or bitmap
	ErrInvalidReference = errors.New("template reference is invalid")
	// ErrTemplateVanished means the scaled template rounds down to zero pixels
	ErrTemplateVanished = errors.New("scaled template has zero size")
)

// Template is a reference symbol bitmap captured at a known window height
type Template struct {
	Name            string
	Bitmap          image.Image
	ReferenceHeight int
	Threshold       float64 // Optional per-symbol override, 0 means matcher default
}

// Size returns the reference bitmap dimensions
func (t Template) Size() image.Point {
	if t.Bitmap == nil {
		return image.Point{}
	}
	return t.Bitmap.Bounds().Size()
}

// ScaledTemplate is a luminance template resized for one frame height
type ScaledTemplate struct {
	Name      string
	Gray      *image.Gray
	Ratio     float64
	Threshold float64
}

// Size returns the scaled template dimensions
func (st *ScaledTemplate) Size() image.Point {
	return st.Gray.Bounds().Size()
}

// ScaledSize computes the template size for a frame height.
// Symbols in the target application scale with window height only, so the
// height ratio is applied to both axes.
func ScaledSize(size image.Point, referenceHeight, frameHeight int) (image.Point, float64, error) {
	if frameHeight <= 0 {
		return image.Point{}, 0, fmt.Errorf("%w: got %d", ErrInvalidFrameHeight, frameHeight)
	}
	if referenceHeight <= 0 {
		return image.Point{}, 0, fmt.Errorf("%w: reference height %d", ErrInvalidReference, referenceHeight)
	}

	ratio := float64(frameHeight) / float64(referenceHeight)
	scaled := image.Point{
		X: int(math.Round(ratio * float64(size.X))),
		Y: int(math.Round(ratio * float64(size.Y))),
	}
	if scaled.X <= 0 || scaled.Y <= 0 {
		return image.Point{}, ratio, fmt.Errorf("%w: %dx%d at ratio %.4f", ErrTemplateVanished, size.X, size.Y, ratio)
	}
	return scaled, ratio, nil
}

// TemplateScaler normalizes reference templates to the current window scale
type TemplateScaler struct {
	logger *logging.Logger
}

// NewTemplateScaler creates a template scaler
func NewTemplateScaler(logger *logging.Logger) *TemplateScaler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TemplateScaler{logger: logger}
}

// Scale converts the template to luminance and resizes it for frameHeight
func (s *TemplateScaler) Scale(t Template, frameHeight int) (*ScaledTemplate, error) {
	if t.Bitmap == nil {
		return nil, fmt.Errorf("%w: %q has no bitmap", ErrInvalidReference, t.Name)
	}

	size, ratio, err := ScaledSize(t.Size(), t.ReferenceHeight, frameHeight)
	if err != nil {
		return nil, fmt.Errorf("scale %q: %w", t.Name, err)
	}

	gray := ToGray(t.Bitmap)
	if size != gray.Bounds().Size() {
		gray = resizeGray(gray, size)
	}

	s.logger.DebugWithContext("Scaled template", map[string]interface{}{
		"symbol": t.Name,
		"ratio":  ratio,
		"width":  size.X,
		"height": size.Y,
	})

	return &ScaledTemplate{
		Name:      t.Name,
		Gray:      gray,
		Ratio:     ratio,
		Threshold: t.Threshold,
	}, nil
}

func resizeGray(gray *image.Gray, size image.Point) *image.Gray {
	resized := resize.Resize(uint(size.X), uint(size.Y), gray, resize.Bilinear)
	if g, ok := resized.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	return ToGray(resized)
}
