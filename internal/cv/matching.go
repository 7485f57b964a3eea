package cv

import (
	"fmt"
	"image"
	"iter"
	"math"

	"jordanella.com/tower-pilot/internal/logging"
)

// Match is one location whose correlation cleared the threshold
type Match struct {
	TopLeft    image.Point // Window-local
	Confidence float64
}

// Surface holds one correlation score per candidate top-left position.
// Width and height are frame size minus template size plus one.
type Surface struct {
	Width, Height int
	Scores        []float64
}

// NewSurface allocates a zeroed surface
func NewSurface(width, height int) *Surface {
	return &Surface{
		Width:  width,
		Height: height,
		Scores: make([]float64, width*height),
	}
}

// At returns the score for top-left (x, y)
func (s *Surface) At(x, y int) float64 {
	return s.Scores[y*s.Width+x]
}

// Set stores the score for top-left (x, y)
func (s *Surface) Set(x, y int, v float64) {
	s.Scores[y*s.Width+x] = v
}

// Above yields every location scoring >= threshold in row-major order
func (s *Surface) Above(threshold float64) iter.Seq[Match] {
	return s.above(threshold, nil)
}

func (s *Surface) above(threshold float64, region *image.Rectangle) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if s == nil {
			return
		}
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				v := s.Scores[y*s.Width+x]
				if v < threshold {
					continue
				}
				p := image.Point{X: x, Y: y}
				if region != nil && !p.In(*region) {
					continue
				}
				if !yield(Match{TopLeft: p, Confidence: v}) {
					return
				}
			}
		}
	}
}

// Best returns the highest-scoring location, for diagnostics
func (s *Surface) Best() (Match, bool) {
	if s == nil || len(s.Scores) == 0 {
		return Match{}, false
	}
	best := Match{Confidence: math.Inf(-1)}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if v := s.Scores[y*s.Width+x]; v > best.Confidence {
				best = Match{TopLeft: image.Point{X: x, Y: y}, Confidence: v}
			}
		}
	}
	return best, true
}

// SurfaceFunc computes a correlation surface of tmpl over frame.
// It returns a nil surface when the template does not fit inside the frame.
type SurfaceFunc func(frame, tmpl *image.Gray) (*Surface, error)

// defaultSurface is swapped for the OpenCV implementation under the gocv build tag
var defaultSurface SurfaceFunc = CorrelationSurface

// CorrelationSurface computes the normalized correlation coefficient of tmpl at
// every position in frame (OpenCV TM_CCOEFF_NORMED). Flat windows score 0.
// Large searches compute the cross term with FFTs, as OpenCV does.
func CorrelationSurface(frame, tmpl *image.Gray) (*Surface, error) {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()
	if tw == 0 || th == 0 {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidReference)
	}
	if tw > fw || th > fh {
		return nil, nil
	}

	n := float64(tw * th)

	// Zero-mean template and its energy
	var tSum float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			tSum += float64(tmpl.Pix[tmpl.PixOffset(tmpl.Rect.Min.X+x, tmpl.Rect.Min.Y+y)])
		}
	}
	tMean := tSum / n
	tZero := make([]float64, tw*th)
	var tEnergy float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			v := float64(tmpl.Pix[tmpl.PixOffset(tmpl.Rect.Min.X+x, tmpl.Rect.Min.Y+y)]) - tMean
			tZero[y*tw+x] = v
			tEnergy += v * v
		}
	}

	integral, integralSq := integralImages(frame)
	stride := fw + 1
	boxSum := func(table []float64, x, y int) float64 {
		return table[(y+th)*stride+x+tw] - table[y*stride+x+tw] - table[(y+th)*stride+x] + table[y*stride+x]
	}

	surface := NewSurface(fw-tw+1, fh-th+1)
	if tEnergy == 0 {
		return surface, nil
	}

	cross := crossTerms(frame, tZero, tw, th)
	for y := 0; y < surface.Height; y++ {
		for x := 0; x < surface.Width; x++ {
			sum := boxSum(integral, x, y)
			sumSq := boxSum(integralSq, x, y)
			wEnergy := sumSq - sum*sum/n
			if wEnergy <= 1e-9 {
				continue
			}

			score := cross[y*surface.Width+x] / math.Sqrt(tEnergy*wEnergy)
			surface.Set(x, y, math.Max(-1, math.Min(1, score)))
		}
	}

	return surface, nil
}

// integralImages builds summed-area tables of pixel values and their squares
func integralImages(img *image.Gray) ([]float64, []float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	sumSq := make([]float64, stride*(h+1))

	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			v := float64(img.Pix[img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)])
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sumSq[(y+1)*stride+x+1] = sumSq[y*stride+x+1] + rowSq
		}
	}
	return sum, sumSq
}

// Matcher finds a scaled template inside captured frames
type Matcher struct {
	opts   matchOptions
	logger *logging.Logger
}

// NewMatcher creates a matcher with the default 0.7 threshold
func NewMatcher(logger *logging.Logger, options ...Option) *Matcher {
	if logger == nil {
		logger = logging.Discard()
	}
	opts := matchOptions{
		threshold: DefaultThreshold,
		surface:   defaultSurface,
	}
	for _, o := range options {
		o(&opts)
	}
	return &Matcher{opts: opts, logger: logger}
}

// Threshold returns the configured default threshold
func (m *Matcher) Threshold() float64 {
	return m.opts.threshold
}

// Match searches frame for tmpl and returns every location at or above the
// threshold, in row-major scan order. Adjacent hits are not merged.
func (m *Matcher) Match(frame *Frame, tmpl *ScaledTemplate) (iter.Seq[Match], error) {
	if frame.Empty() {
		return none, nil
	}

	surface, err := m.opts.surface(ToGray(frame.Image), tmpl.Gray)
	if err != nil {
		return nil, fmt.Errorf("correlation failed for %q: %w", tmpl.Name, err)
	}
	if surface == nil {
		m.logger.DebugWithContext("Template larger than frame", map[string]interface{}{
			"symbol":   tmpl.Name,
			"template": tmpl.Size().String(),
			"frame":    fmt.Sprintf("%dx%d", frame.Width(), frame.Height()),
		})
		return none, nil
	}

	threshold := m.opts.threshold
	if tmpl.Threshold > 0 {
		threshold = tmpl.Threshold
	}

	if best, ok := surface.Best(); ok {
		m.logger.DebugWithContext("Correlation peak", map[string]interface{}{
			"symbol":     tmpl.Name,
			"x":          best.TopLeft.X,
			"y":          best.TopLeft.Y,
			"confidence": best.Confidence,
			"threshold":  threshold,
		})
	}

	return surface.above(threshold, m.opts.region), nil
}

func none(func(Match) bool) {}
