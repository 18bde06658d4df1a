// Package settings holds the user-facing stream settings.
package settings

import (
	"fmt"
	"math"
	"strings"

	"github.com/Alia5/viistream/platform"
)

// AutoBitrate requests a bitrate derived from resolution and frame rate.
const AutoBitrate = -1

// AudioLayout is the requested speaker layout.
type AudioLayout string

const (
	AudioUnset    AudioLayout = ""
	AudioStereo   AudioLayout = "stereo"
	AudioSurround AudioLayout = "5.1"
	Audio71       AudioLayout = "7.1"
)

// Channels returns the channel count of the layout, 0 when unset or unknown.
func (l AudioLayout) Channels() int {
	switch l {
	case AudioStereo:
		return 2
	case AudioSurround:
		return 6
	case Audio71:
		return 8
	default:
		return 0
	}
}

// ParseAudioLayout accepts "stereo", "5.1"/"surround" and "7.1".
func ParseAudioLayout(s string) (AudioLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AudioUnset, nil
	case "stereo", "2.0":
		return AudioStereo, nil
	case "5.1", "surround":
		return AudioSurround, nil
	case "7.1":
		return Audio71, nil
	}
	return AudioUnset, fmt.Errorf("unknown audio layout %q", s)
}

// Settings are the user's stream preferences.
type Settings struct {
	Width      int  `help:"Stream width in pixels" default:"1920" env:"VIISTREAM_WIDTH"`
	Height     int  `help:"Stream height in pixels" default:"1080" env:"VIISTREAM_HEIGHT"`
	FPS        int  `name:"fps" help:"Stream frame rate" default:"60" env:"VIISTREAM_FPS"`
	Bitrate    int  `help:"Video bitrate in kbps; -1 selects one from resolution and frame rate" default:"-1" env:"VIISTREAM_BITRATE"`
	PacketSize int  `help:"Maximum video packet size in bytes" default:"1392" env:"VIISTREAM_PACKET_SIZE"`
	HEVC       bool `name:"hevc" help:"Allow H.265 video" default:"true" env:"VIISTREAM_HEVC"`
	AV1        bool `name:"av1" help:"Allow AV1 video" default:"false" env:"VIISTREAM_AV1"`
	HDR        bool `name:"hdr" help:"Request 10-bit HDR video when possible" default:"false" env:"VIISTREAM_HDR"`

	Audio      string `help:"Audio layout (stereo, 5.1, 7.1)" default:"stereo" env:"VIISTREAM_AUDIO"`
	LocalAudio bool   `help:"Keep playing audio on the host" default:"false" env:"VIISTREAM_LOCAL_AUDIO"`

	Deadzone      int  `help:"Stick deadzone in percent" default:"0" env:"VIISTREAM_DEADZONE"`
	VirtualMouse  bool `help:"Allow driving the mouse with the right stick" default:"true" env:"VIISTREAM_VIRTUAL_MOUSE"`
	VMouseSpeed   int  `name:"vmouse-speed" help:"Virtual mouse speed (0-16)" default:"8" env:"VIISTREAM_VMOUSE_SPEED"`
	HardwareMouse bool `help:"Forward the local mouse as-is" default:"false" env:"VIISTREAM_HARDWARE_MOUSE"`
	SwapABXY      bool `name:"swap-abxy" help:"Swap A/B and X/Y face buttons" default:"false" env:"VIISTREAM_SWAP_ABXY"`
	ViewOnly      bool `help:"Never send input to the host" default:"false" env:"VIISTREAM_VIEW_ONLY"`
	SOPS          bool `name:"sops" help:"Let the host optimize game settings for the stream" default:"true" env:"VIISTREAM_SOPS"`
}

// AudioLayout returns the parsed audio layout; unknown values are treated as unset.
func (s Settings) AudioLayout() AudioLayout {
	l, err := ParseAudioLayout(s.Audio)
	if err != nil {
		return AudioUnset
	}
	return l
}

var bitrateTable = []struct {
	pixels float64
	factor float64
}{
	{640 * 360, 1},
	{854 * 480, 2},
	{1280 * 720, 5},
	{1920 * 1080, 10},
	{2560 * 1440, 20},
	{3840 * 2160, 40},
}

// OptimalBitrate returns a bitrate in kbps suitable for the resolution and frame
// rate, never above the decoder's MaxBitrate when one is reported.
func OptimalBitrate(vcap platform.VideoCapabilities, width, height, fps int) int {
	pixels := float64(width) * float64(height)

	var resFactor float64
	switch {
	case pixels <= bitrateTable[0].pixels:
		resFactor = bitrateTable[0].factor
	case pixels >= bitrateTable[len(bitrateTable)-1].pixels:
		resFactor = bitrateTable[len(bitrateTable)-1].factor
	default:
		for i := 1; i < len(bitrateTable); i++ {
			lo, hi := bitrateTable[i-1], bitrateTable[i]
			if pixels <= hi.pixels {
				resFactor = lo.factor + (pixels-lo.pixels)/(hi.pixels-lo.pixels)*(hi.factor-lo.factor)
				break
			}
		}
	}

	// Above 60 fps the bitrate grows with the square root of the frame rate.
	frameRate := float64(fps)
	if fps > 60 {
		frameRate = math.Sqrt(frameRate/60) * 60
	}
	fpsFactor := frameRate / 30

	kbps := int(math.Round(resFactor*fpsFactor)) * 1000
	if vcap.MaxBitrate > 0 && kbps > vcap.MaxBitrate {
		return vcap.MaxBitrate
	}
	return kbps
}
