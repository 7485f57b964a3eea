package cv

import (
	"image"
	"image/color"
)

// ToGray converts an image to single-channel luminance using BT.601 weights,
// the same weighting OpenCV applies for BGR2GRAY. The result starts at (0,0).
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < bounds.Dy(); y++ {
			copy(gray.Pix[y*gray.Stride:], src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):][:bounds.Dx()])
		}
	case *image.RGBA:
		for y := 0; y < bounds.Dy(); y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < bounds.Dx(); x++ {
				i := x * 4
				gray.Pix[y*gray.Stride+x] = luma(row[i], row[i+1], row[i+2])
			}
		}
	default:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				gray.Pix[y*gray.Stride+x] = luma(c.R, c.G, c.B)
			}
		}
	}

	return gray
}

func luma(r, g, b uint8) uint8 {
	return uint8((int(r)*299 + int(g)*587 + int(b)*114 + 500) / 1000)
}
