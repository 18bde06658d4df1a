// Package xbox360 holds the XInput-style controller state that is streamed to the
// remote peer, along with its wire encoding.
package xbox360

// Button bitmasks (XInput compatible). These match the button flags of the
// multi-controller event, so a slot's mask goes on the wire unchanged.
const (
	ButtonDPadUp    = 0x0001
	ButtonDPadDown  = 0x0002
	ButtonDPadLeft  = 0x0004
	ButtonDPadRight = 0x0008
	ButtonStart     = 0x0010
	ButtonBack      = 0x0020
	ButtonLThumb    = 0x0040 // Left stick button
	ButtonRThumb    = 0x0080 // Right stick button
	ButtonLShoulder = 0x0100 // Left bumper (LB)
	ButtonRShoulder = 0x0200 // Right bumper (RB)
	ButtonGuide     = 0x0400 // Xbox/Guide button (center logo)
	ButtonA         = 0x1000
	ButtonB         = 0x2000
	ButtonX         = 0x4000
	ButtonY         = 0x8000
)

// InputStateSize is the encoded size of InputState.
const InputStateSize = 14

// RumbleStateSize is the encoded size of XRumbleState.
const RumbleStateSize = 2
