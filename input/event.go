package input

import (
	"fmt"
	"strings"
)

// DeviceID identifies a physical controller for as long as it stays connected.
type DeviceID int32

// Button is a physical controller button, independent of any face-button swap.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonBack
	ButtonGuide
	ButtonStart
	ButtonLeftStick
	ButtonRightStick
	ButtonLeftShoulder
	ButtonRightShoulder
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
	buttonCount
)

var buttonNames = [buttonCount]string{
	"a", "b", "x", "y", "back", "guide", "start", "leftstick", "rightstick",
	"leftshoulder", "rightshoulder", "dpup", "dpdown", "dpleft", "dpright",
}

func (b Button) String() string {
	if b < buttonCount {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// ParseButton resolves a button by its lower-case name (SDL game controller naming).
func ParseButton(name string) (Button, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range buttonNames {
		if n == name {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Axis is a physical analog axis.
type Axis uint8

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
	AxisTriggerLeft
	AxisTriggerRight
	axisCount
)

var axisNames = [axisCount]string{"leftx", "lefty", "rightx", "righty", "lefttrigger", "righttrigger"}

func (a Axis) String() string {
	if a < axisCount {
		return axisNames[a]
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// ParseAxis resolves an axis by its lower-case name.
func ParseAxis(name string) (Axis, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range axisNames {
		if n == name {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", name)
}

// Event is a raw input event delivered by the input collaborator.
type Event interface {
	device() DeviceID
}

// ButtonEvent reports a button press or release.
type ButtonEvent struct {
	Device  DeviceID
	Button  Button
	Pressed bool
}

func (e ButtonEvent) device() DeviceID { return e.Device }

// AxisEvent reports a new raw axis value. Sticks use the full signed 16-bit
// range, triggers 0..32767.
type AxisEvent struct {
	Device DeviceID
	Axis   Axis
	Value  int16
}

func (e AxisEvent) device() DeviceID { return e.Device }
