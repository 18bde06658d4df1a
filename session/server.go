package session

import "slices"

// Codec mode bits advertised by the host.
const (
	CodecModeH264       uint32 = 0x00001
	CodecModeHEVC       uint32 = 0x00100
	CodecModeHEVCMain10 uint32 = 0x00200
	CodecModeAV1Main8   uint32 = 0x10000
	CodecModeAV1Main10  uint32 = 0x20000
)

// DisplayMode is a resolution and refresh rate the host can render at.
type DisplayMode struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Refresh int `json:"refresh"`
}

// ServerInfo describes the host a session streams from.
type ServerInfo struct {
	Name             string        `json:"name"`
	Address          string        `json:"address"`
	UUID             string        `json:"uuid,omitempty"`
	CodecModeSupport uint32        `json:"codecModeSupport"`
	DisplayModes     []DisplayMode `json:"displayModes,omitempty"`
	SupportsHDR      bool          `json:"supportsHdr"`
	GfeVersion       string        `json:"gfeVersion,omitempty"`
	CurrentGameID    int           `json:"currentGameId"`
}

// Clone returns a deep copy.
func (s ServerInfo) Clone() *ServerInfo {
	c := s
	c.DisplayModes = slices.Clone(s.DisplayModes)
	return &c
}

// SupportsMode reports whether the host advertises exactly this mode.
func (s *ServerInfo) SupportsMode(width, height, fps int) bool {
	for _, m := range s.DisplayModes {
		if m.Width == width && m.Height == height && m.Refresh == fps {
			return true
		}
	}
	return false
}

// CodecModes maps the selected video formats to the host's codec mode bits.
func CodecModes(formats VideoFormat) uint32 {
	var modes uint32
	if formats.Has(VideoFormatH264) {
		modes |= CodecModeH264
	}
	if formats.Has(VideoFormatH265) {
		modes |= CodecModeHEVC
		if formats.Has(VideoFormatH265Main10) {
			modes |= CodecModeHEVCMain10
		}
	}
	if formats.Has(VideoFormatAV1Main8) {
		modes |= CodecModeAV1Main8
	}
	if formats.Has(VideoFormatAV1Main10) {
		modes |= CodecModeAV1Main10
	}
	return modes
}

// AppInfo is the host application being streamed.
type AppInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
