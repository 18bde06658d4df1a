// Package mouse holds the relative mouse state streamed to the remote peer.
package mouse

import (
	"io"
)

// InputStateSize is the encoded size of InputState.
const InputStateSize = 9

// InputState is one relative mouse report.
// viiper:wire mouse c2s buttons:u8 dx:i16 dy:i16 wheel:i16 pan:i16
type InputState struct {
	// Button bitfield: bit 0=Left, 1=Right, 2=Middle, 3=Back, 4=Forward
	Buttons uint8
	// Delta X/Y: signed 16-bit relative movement
	DX, DY int16
	// Wheel: signed 16-bit vertical scroll
	Wheel int16
	// Pan: signed 16-bit horizontal scroll
	Pan int16
}

// Move returns a report carrying only a relative motion.
func Move(dx, dy int16) InputState {
	return InputState{DX: dx, DY: dy}
}

// MarshalBinary encodes InputState to 9 bytes.
//
//	Byte 0: Button bitfield (bits 5-7 zero)
//	Bytes 1-2: DX (int16 little-endian)
//	Bytes 3-4: DY
//	Bytes 5-6: Wheel
//	Bytes 7-8: Pan
func (m *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	b[0] = m.Buttons & 0x1F
	b[1] = byte(m.DX)
	b[2] = byte(m.DX >> 8)
	b[3] = byte(m.DY)
	b[4] = byte(m.DY >> 8)
	b[5] = byte(m.Wheel)
	b[6] = byte(m.Wheel >> 8)
	b[7] = byte(m.Pan)
	b[8] = byte(m.Pan >> 8)
	return b, nil
}

// UnmarshalBinary decodes 9 bytes into InputState.
func (m *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	m.Buttons = data[0]
	m.DX = int16(uint16(data[1]) | uint16(data[2])<<8)
	m.DY = int16(uint16(data[3]) | uint16(data[4])<<8)
	m.Wheel = int16(uint16(data[5]) | uint16(data[6])<<8)
	m.Pan = int16(uint16(data[7]) | uint16(data[8])<<8)
	return nil
}
