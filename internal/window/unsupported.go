//go:build !windows

package window

// NewSystem returns the native window system for this platform
func NewSystem() (System, error) {
	return nil, ErrUnsupported
}
