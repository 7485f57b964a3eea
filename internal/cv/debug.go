package cv

import (
	"image"
	"image/color"
	"image/draw"
)

// HighlightColor is used for the match box and center marker
var HighlightColor = color.RGBA{255, 0, 0, 255}

// Highlight returns a copy of frame with the matched symbol boxed and its
// center marked by a small square. Purely observational.
func Highlight(frame *image.RGBA, match Match, size image.Point) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)

	box := image.Rectangle{Min: match.TopLeft, Max: match.TopLeft.Add(size)}
	drawRect(out, box, HighlightColor, 2)

	center := SymbolCenter(match.TopLeft, size)
	marker := image.Rect(center.X-2, center.Y-2, center.X+3, center.Y+3)
	drawRect(out, marker, HighlightColor, 2)

	return out
}

// SymbolCenter returns the window-local center of a template placed at topLeft
func SymbolCenter(topLeft, size image.Point) image.Point {
	return topLeft.Add(image.Point{X: size.X / 2, Y: size.Y / 2})
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.RGBA, thickness int) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		r := rect.Inset(t)
		if r.Empty() {
			return
		}
		// Top and bottom
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, r.Min.Y, col)
			img.SetRGBA(x, r.Max.Y-1, col)
		}
		// Left and right
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(r.Min.X, y, col)
			img.SetRGBA(r.Max.X-1, y, col)
		}
	}
}
