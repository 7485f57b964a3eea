package cv

import (
	"fmt"
	"iter"

	"jordanella.com/tower-pilot/internal/logging"
)

// TemplateLoader resolves a symbol name to its reference template
type TemplateLoader interface {
	Load(name string) (Template, error)
}

// Analysis is the outcome of searching one frame for one symbol
type Analysis struct {
	Frame    *Frame
	Template *ScaledTemplate // nil when the frame was empty
	Matches  iter.Seq[Match] // Row-major; may be ranged more than once
}

// Service runs capture, scaling and matching for a window and symbol
type Service struct {
	capture *FrameCapture
	loader  TemplateLoader
	scaler  *TemplateScaler
	matcher *Matcher
	logger  *logging.Logger
}

// NewService creates a new CV service
func NewService(capture *FrameCapture, loader TemplateLoader, scaler *TemplateScaler, matcher *Matcher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		capture: capture,
		loader:  loader,
		scaler:  scaler,
		matcher: matcher,
		logger:  logger,
	}
}

// Analyze captures the window and searches it for the symbol.
// An empty frame short-circuits with no template and no matches.
func (s *Service) Analyze(window, symbol string) (*Analysis, error) {
	frame, err := s.capture.Capture(window)
	if err != nil {
		return nil, err
	}
	if frame.Empty() {
		return &Analysis{Frame: frame, Matches: none}, nil
	}

	template, err := s.loader.Load(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	scaled, err := s.scaler.Scale(template, frame.Height())
	if err != nil {
		return nil, err
	}

	matches, err := s.matcher.Match(frame, scaled)
	if err != nil {
		return nil, err
	}

	return &Analysis{Frame: frame, Template: scaled, Matches: matches}, nil
}
