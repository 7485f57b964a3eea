package cv

import "image"

// DefaultThreshold is the minimum correlation for a location to count as a match
const DefaultThreshold = 0.7

// Option configures a Matcher
type Option func(*matchOptions)

type matchOptions struct {
	threshold float64
	region    *image.Rectangle
	surface   SurfaceFunc
}

// WithThreshold sets the matching threshold option
func WithThreshold(t float64) Option {
	return func(opts *matchOptions) {
		opts.threshold = t
	}
}

// WithSearchRegion limits matches to top-left corners inside r (frame-local)
func WithSearchRegion(r image.Rectangle) Option {
	return func(opts *matchOptions) {
		opts.region = &r
	}
}

// WithSurfaceFunc replaces the correlation implementation
func WithSurfaceFunc(fn SurfaceFunc) Option {
	return func(opts *matchOptions) {
		opts.surface = fn
	}
}
