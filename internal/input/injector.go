// Package input delivers pointer actions to the desktop.
package input

import "fmt"

// Button identifies a mouse button
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "center"
)

// ParseButton validates a configured button name
func ParseButton(s string) (Button, error) {
	switch Button(s) {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return Button(s), nil
	case "middle":
		return ButtonMiddle, nil
	}
	return "", fmt.Errorf("unknown mouse button %q", s)
}

// WheelDelta is the number of wheel units in one notch
const WheelDelta = 120

// WheelNotches converts wheel units to whole notches. The sign is kept and
// any non-zero amount is at least one notch.
func WheelNotches(amount int) int {
	n := amount / WheelDelta
	switch {
	case n == 0 && amount > 0:
		return 1
	case n == 0 && amount < 0:
		return -1
	}
	return n
}

// Injector synthesizes pointer input at absolute screen coordinates
type Injector interface {
	MoveTo(x, y int) error
	Click(button Button) error
	// Scroll moves the wheel by amount wheel units (WheelDelta per notch);
	// negative amounts scroll down
	Scroll(amount int) error
}
