package xbox360

import (
	"encoding/binary"
	"io"
)

// InputState is the full controller state carried by one multi-controller event.
// viiper:wire xbox360 c2s buttons:u32 lt:u8 rt:u8 lx:i16 ly:i16 rx:i16 ry:i16
type InputState struct {
	// Button bitfield, lower 16 bits used
	Buttons uint32
	// Triggers: 0-255
	LT, RT uint8
	// Sticks: signed 16-bit little endian values
	LX, LY int16
	RX, RY int16
}

// IsZero reports whether no button is held and every axis is centered.
func (x InputState) IsZero() bool {
	return x == InputState{}
}

// MarshalBinary encodes InputState to InputStateSize bytes.
//
//	0-3:   Buttons (little-endian uint32)
//	4:     LT
//	5:     RT
//	6-7:   LX
//	8-9:   LY
//	10-11: RX
//	12-13: RY
func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

// UnmarshalBinary decodes InputStateSize bytes into InputState.
func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// XRumbleState is the wire format for rumble/motor commands sent back by the peer.
// viiper:wire xbox360 s2c left:u8 right:u8
type XRumbleState struct {
	LeftMotor  uint8 // big / low-frequency motor
	RightMotor uint8 // small / high-frequency motor
}

// MarshalBinary encodes XRumbleState to 2 bytes.
func (r *XRumbleState) MarshalBinary() ([]byte, error) {
	return []byte{r.LeftMotor, r.RightMotor}, nil
}

// UnmarshalBinary decodes 2 bytes into XRumbleState.
func (r *XRumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < RumbleStateSize {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}
