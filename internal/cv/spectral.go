package cv

import (
	"image"
	"math/cmplx"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
)

// directWorkLimit is the largest positions × template-pixels product summed
// directly; bigger searches correlate in the frequency domain
const directWorkLimit = 1 << 22

// crossTerms returns sum(frame window × zero-mean template) for every top-left
// position, row-major with the surface width as stride
func crossTerms(frame *image.Gray, tZero []float64, tw, th int) []float64 {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	work := (fw - tw + 1) * (fh - th + 1) * tw * th
	if work <= directWorkLimit || fw < 2 || fh < 2 {
		return directCross(frame, tZero, tw, th)
	}
	return spectralCross(frame, tZero, tw, th)
}

func directCross(frame *image.Gray, tZero []float64, tw, th int) []float64 {
	sw, sh := frame.Rect.Dx()-tw+1, frame.Rect.Dy()-th+1
	out := make([]float64, sw*sh)
	parallelRange(sh, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := 0; x < sw; x++ {
				var cross float64
				for ty := 0; ty < th; ty++ {
					row := frame.Pix[frame.PixOffset(frame.Rect.Min.X+x, frame.Rect.Min.Y+y+ty):]
					for tx, tv := range tZero[ty*tw : (ty+1)*tw] {
						cross += float64(row[tx]) * tv
					}
				}
				out[y*sw+x] = cross
			}
		}
	})
	return out
}

// spectralCross correlates through F(frame) · conj(F(template)). Planes are
// padded to 5-smooth sizes; valid positions never wrap around.
func spectralCross(frame *image.Gray, tZero []float64, tw, th int) []float64 {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	w, h := smoothSize(fw), smoothSize(fh)

	fplane := make([]float64, w*h)
	for y := 0; y < fh; y++ {
		row := frame.Pix[frame.PixOffset(frame.Rect.Min.X, frame.Rect.Min.Y+y):]
		for x := 0; x < fw; x++ {
			fplane[y*w+x] = float64(row[x])
		}
	}
	tplane := make([]float64, w*h)
	for y := 0; y < th; y++ {
		copy(tplane[y*w:y*w+tw], tZero[y*tw:(y+1)*tw])
	}

	fs := forward2D(fplane, w, h)
	ts := forward2D(tplane, w, h)
	for i, v := range ts {
		fs[i] *= cmplx.Conj(v)
	}
	plane := inverse2D(fs, w, h)

	sw, sh := fw-tw+1, fh-th+1
	out := make([]float64, sw*sh)
	for y := 0; y < sh; y++ {
		copy(out[y*sw:(y+1)*sw], plane[y*w:y*w+sw])
	}
	return out
}

// forward2D transforms each row to w/2+1 coefficients, then each coefficient column
func forward2D(plane []float64, w, h int) []complex128 {
	cols := w/2 + 1
	coeffs := make([]complex128, h*cols)
	parallelRange(h, func(lo, hi int) {
		fft := fourier.NewFFT(w)
		for y := lo; y < hi; y++ {
			fft.Coefficients(coeffs[y*cols:(y+1)*cols], plane[y*w:(y+1)*w])
		}
	})
	transformColumns(coeffs, cols, h, false)
	return coeffs
}

// inverse2D undoes forward2D, including the 1/(w·h) normalization gonum leaves out
func inverse2D(coeffs []complex128, w, h int) []float64 {
	cols := w/2 + 1
	transformColumns(coeffs, cols, h, true)

	plane := make([]float64, w*h)
	scale := 1 / float64(w*h)
	parallelRange(h, func(lo, hi int) {
		fft := fourier.NewFFT(w)
		for y := lo; y < hi; y++ {
			row := fft.Sequence(plane[y*w:(y+1)*w], coeffs[y*cols:(y+1)*cols])
			for x := range row {
				row[x] *= scale
			}
		}
	})
	return plane
}

func transformColumns(coeffs []complex128, cols, h int, inverse bool) {
	parallelRange(cols, func(lo, hi int) {
		fft := fourier.NewCmplxFFT(h)
		in := make([]complex128, h)
		out := make([]complex128, h)
		for x := lo; x < hi; x++ {
			for y := range h {
				in[y] = coeffs[y*cols+x]
			}
			if inverse {
				fft.Sequence(out, in)
			} else {
				fft.Coefficients(out, in)
			}
			for y := range h {
				coeffs[y*cols+x] = out[y]
			}
		}
	})
}

// smoothSize returns the smallest size >= n with no prime factor above 5
func smoothSize(n int) int {
	for m := max(n, 1); ; m++ {
		r := m
		for _, p := range [...]int{2, 3, 5} {
			for r%p == 0 {
				r /= p
			}
		}
		if r == 1 {
			return m
		}
	}
}

// parallelRange splits [0, n) into one contiguous chunk per available CPU.
// fn gets its own chunk and must only write to indices inside it.
func parallelRange(n int, fn func(lo, hi int)) {
	workers := min(runtime.GOMAXPROCS(0), n)
	if workers <= 1 {
		fn(0, n)
		return
	}
	step := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += step {
		hi := min(lo+step, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
