package input

import (
	"github.com/go-vgo/robotgo"
)

// RobotgoInjector drives the OS pointer through robotgo
type RobotgoInjector struct{}

// NewRobotgoInjector creates the default injector
func NewRobotgoInjector() *RobotgoInjector {
	return &RobotgoInjector{}
}

func (RobotgoInjector) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (RobotgoInjector) Click(button Button) error {
	robotgo.Click(string(button))
	return nil
}

// Scroll converts wheel units to notches, since robotgo scrolls by notch
func (RobotgoInjector) Scroll(amount int) error {
	robotgo.Scroll(0, WheelNotches(amount))
	return nil
}
