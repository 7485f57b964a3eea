package bot

import (
	"image"
	"iter"

	"jordanella.com/tower-pilot/internal/cv"
)

// CoordinateMapper converts a window-local match into an absolute click position
type CoordinateMapper struct{}

// NewCoordinateMapper creates a coordinate mapper
func NewCoordinateMapper() *CoordinateMapper {
	return &CoordinateMapper{}
}

// First pulls the first match from the sequence without evaluating the rest
func First(matches iter.Seq[cv.Match]) (cv.Match, bool) {
	if matches == nil {
		return cv.Match{}, false
	}
	for m := range matches {
		return m, true
	}
	return cv.Match{}, false
}

// Map returns the screen coordinate of the first match's center, or nil when the
// sequence is empty. Later matches are ignored even if they score higher.
func (cm *CoordinateMapper) Map(matches iter.Seq[cv.Match], size image.Point, window cv.ScreenRect) *cv.ScreenCoordinate {
	m, ok := First(matches)
	if !ok {
		return nil
	}
	c := cm.mapMatch(m, size, window)
	return &c
}

// mapMatch maps one match found in a frame of the given window
func (cm *CoordinateMapper) mapMatch(m cv.Match, size image.Point, window cv.ScreenRect) cv.ScreenCoordinate {
	abs := window.TopLeft.Add(cv.SymbolCenter(m.TopLeft, size))
	return cv.ScreenCoordinate{X: abs.X, Y: abs.Y, Window: window}
}
