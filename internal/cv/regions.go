package cv

import (
	"fmt"
	"image"
)

// ScreenRect is a window's client area in absolute screen pixels.
// The zero value means "window not found".
type ScreenRect struct {
	TopLeft     image.Point
	BottomRight image.Point
}

// NewScreenRect creates a rect from two absolute corners
func NewScreenRect(x1, y1, x2, y2 int) ScreenRect {
	return ScreenRect{
		TopLeft:     image.Point{X: x1, Y: y1},
		BottomRight: image.Point{X: x2, Y: y2},
	}
}

// IsZero reports whether this is the not-found sentinel
func (r ScreenRect) IsZero() bool {
	return r == ScreenRect{}
}

// Valid checks the corner ordering invariant
func (r ScreenRect) Valid() bool {
	return r.BottomRight.X >= r.TopLeft.X && r.BottomRight.Y >= r.TopLeft.Y
}

// Width returns the width of the rect
func (r ScreenRect) Width() int {
	return r.BottomRight.X - r.TopLeft.X
}

// Height returns the height of the rect
func (r ScreenRect) Height() int {
	return r.BottomRight.Y - r.TopLeft.Y
}

// Extent returns the width/height of the rect as a point
func (r ScreenRect) Extent() image.Point {
	return r.BottomRight.Sub(r.TopLeft)
}

// Empty reports whether the rect covers no pixels
func (r ScreenRect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains checks if an absolute point lies within the rect
func (r ScreenRect) Contains(p image.Point) bool {
	return p.X >= r.TopLeft.X && p.X < r.BottomRight.X && p.Y >= r.TopLeft.Y && p.Y < r.BottomRight.Y
}

// GrabRectangle returns the capture box as top-left plus extent
func (r ScreenRect) GrabRectangle() image.Rectangle {
	ext := r.Extent()
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.TopLeft.X+ext.X, r.TopLeft.Y+ext.Y)
}

func (r ScreenRect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// ScreenCoordinate is an absolute pixel position. Window is the client area the
// position was computed in; its zero value means the position is not tied to a
// window and is used exactly as given.
type ScreenCoordinate struct {
	X, Y   int
	Window ScreenRect
}

// Point returns the absolute position
func (c ScreenCoordinate) Point() image.Point {
	return image.Pt(c.X, c.Y)
}

// Anchored reports whether the position carries the window it was computed in
func (c ScreenCoordinate) Anchored() bool {
	return !c.Window.IsZero()
}

// Local returns the position relative to the window's top-left corner
func (c ScreenCoordinate) Local() image.Point {
	return c.Point().Sub(c.Window.TopLeft)
}

// Follow re-anchors the position to where the window is now. Unanchored
// positions are returned unchanged.
func (c ScreenCoordinate) Follow(window ScreenRect) ScreenCoordinate {
	if !c.Anchored() || window.IsZero() {
		return c
	}
	p := window.TopLeft.Add(c.Local())
	return ScreenCoordinate{X: p.X, Y: p.Y, Window: window}
}
