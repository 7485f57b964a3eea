//go:build gocv

package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	defaultSurface = OpenCVSurface
}

// OpenCVSurface computes the same surface as CorrelationSurface through
// OpenCV's matchTemplate. Enabled with -tags gocv.
func OpenCVSurface(frame, tmpl *image.Gray) (*Surface, error) {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()
	if tw == 0 || th == 0 {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidReference)
	}
	if tw > fw || th > fh {
		return nil, nil
	}

	frameMat, err := grayToMat(frame)
	if err != nil {
		return nil, err
	}
	defer frameMat.Close()

	tmplMat, err := grayToMat(tmpl)
	if err != nil {
		return nil, err
	}
	defer tmplMat.Close()

	result := gocv.NewMat()
	defer result.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(frameMat, tmplMat, &result, gocv.TmCcoeffNormed, mask)

	surface := NewSurface(result.Cols(), result.Rows())
	for y := 0; y < surface.Height; y++ {
		for x := 0; x < surface.Width; x++ {
			surface.Set(x, y, float64(result.GetFloatAt(y, x)))
		}
	}
	return surface, nil
}

func grayToMat(img *image.Gray) (gocv.Mat, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(data[y*w:(y+1)*w], img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):])
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	return mat, nil
}
