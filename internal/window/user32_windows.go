//go:build windows

package window

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"
)

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procFindWindowW         = user32.NewProc("FindWindowW")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procGetClientRect       = user32.NewProc("GetClientRect")
	procClientToScreen      = user32.NewProc("ClientToScreen")
)

// RECT structure for Windows API
type rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// POINT structure for Windows API
type point struct {
	X int32
	Y int32
}

// User32 implements System with direct user32.dll calls
type User32 struct{}

// NewSystem returns the native window system for this platform
func NewSystem() (System, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("failed to load user32.dll: %w", err)
	}
	return User32{}, nil
}

func (User32) FindWindow(title string) (Handle, bool, error) {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return 0, false, err
	}

	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return 0, false, nil
	}
	return Handle(hwnd), true, nil
}

func (User32) RaiseToForeground(h Handle) error {
	ret, _, err := procSetForegroundWindow.Call(uintptr(h))
	if ret == 0 {
		return fmt.Errorf("SetForegroundWindow failed: %v", err)
	}
	return nil
}

func (User32) ClientRect(h Handle) (image.Rectangle, error) {
	var r rect
	ret, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("failed to get client rect: %v", err)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

func (User32) ClientToScreen(h Handle, p image.Point) (image.Point, error) {
	pt := point{X: int32(p.X), Y: int32(p.Y)}
	ret, _, err := procClientToScreen.Call(uintptr(h), uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return image.Point{}, fmt.Errorf("ClientToScreen failed: %v", err)
	}
	return image.Point{X: int(pt.X), Y: int(pt.Y)}, nil
}
