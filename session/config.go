package session

import (
	"github.com/Alia5/viistream/platform"
	"github.com/Alia5/viistream/settings"
)

// VideoFormat is a bitmask of video formats offered to the host.
type VideoFormat uint32

const (
	VideoFormatH264       VideoFormat = 0x0001
	VideoFormatH265       VideoFormat = 0x0100
	VideoFormatH265Main10 VideoFormat = 0x0200
	VideoFormatAV1Main8   VideoFormat = 0x1000
	VideoFormatAV1Main10  VideoFormat = 0x2000

	VideoFormatMaskH264  VideoFormat = 0x000F
	VideoFormatMask10Bit             = VideoFormatH265Main10 | VideoFormatAV1Main10
)

// Has reports whether all bits of f are set.
func (v VideoFormat) Has(f VideoFormat) bool { return v&f == f }

// ColorSpace is the color space requested from the host encoder.
type ColorSpace int

const (
	ColorSpaceRec601 ColorSpace = iota
	ColorSpaceRec709
	ColorSpaceRec2020
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceRec709:
		return "rec709"
	case ColorSpaceRec2020:
		return "rec2020"
	default:
		return "rec601"
	}
}

// ColorRange is the quantization range requested from the host encoder.
type ColorRange int

const (
	ColorRangeLimited ColorRange = iota
	ColorRangeFull
)

// AudioConfig packs channel count and channel mask the way the stream protocol expects.
type AudioConfig uint32

// MakeAudioConfig builds an AudioConfig from a channel count and speaker mask.
func MakeAudioConfig(channels int, mask uint32) AudioConfig {
	return AudioConfig(mask<<16 | uint32(channels)<<8 | 0xCA)
}

var (
	AudioConfigStereo     = MakeAudioConfig(2, 0x3)
	AudioConfig51Surround = MakeAudioConfig(6, 0x3F)
	AudioConfig71Surround = MakeAudioConfig(8, 0x63F)
)

// Channels returns the channel count of the configuration.
func (a AudioConfig) Channels() int { return int(a>>8) & 0xFF }

// EncryptAudio requests encrypted audio.
const EncryptAudio = 0x01

// StreamConfig are the stream parameters negotiated with the host.
type StreamConfig struct {
	Width      int
	Height     int
	FPS        int
	Bitrate    int // kbps
	PacketSize int

	SupportedVideoFormats VideoFormat
	ColorSpace            ColorSpace
	ColorRange            ColorRange
	AudioConfiguration    AudioConfig
	EncryptionFlags       int
}

// Config is the effective configuration of one session. It does not change after creation.
type Config struct {
	Stream StreamConfig

	VirtualMouse  bool
	VMouseSpeed   int
	HardwareMouse bool
	LocalAudio    bool
	ViewOnly      bool
	SOPS          bool
	SwapABXY      bool
	StickDeadzone uint8
}

// BuildConfig reconciles the user's settings with what the platform can decode.
// Every input yields a usable configuration.
func BuildConfig(s settings.Settings, vcap platform.VideoCapabilities, acap platform.AudioCapabilities) Config {
	cfg := Config{
		Stream: StreamConfig{
			Width:      s.Width,
			Height:     s.Height,
			FPS:        s.FPS,
			Bitrate:    s.Bitrate,
			PacketSize: s.PacketSize,
		},
		VirtualMouse:  s.VirtualMouse,
		VMouseSpeed:   min(max(s.VMouseSpeed, 0), 16),
		HardwareMouse: s.HardwareMouse,
		LocalAudio:    s.LocalAudio,
		ViewOnly:      s.ViewOnly,
		SOPS:          s.SOPS,
		SwapABXY:      s.SwapABXY,
		StickDeadzone: uint8(min(max(s.Deadzone, 0), 100)),
	}
	st := &cfg.Stream

	if st.Bitrate < 0 {
		st.Bitrate = settings.OptimalBitrate(vcap, st.Width, st.Height, st.FPS)
	}
	if vcap.MaxBitrate > 0 && st.Bitrate > vcap.MaxBitrate {
		st.Bitrate = vcap.MaxBitrate
	}

	hdr := s.HDR && vcap.HDR
	if vcap.Codecs&platform.CodecH264 != 0 {
		st.SupportedVideoFormats |= VideoFormatH264
	}
	if s.HEVC && vcap.Codecs&platform.CodecH265 != 0 {
		st.SupportedVideoFormats |= VideoFormatH265
		if hdr {
			st.SupportedVideoFormats |= VideoFormatH265Main10
		}
	}
	if s.AV1 && vcap.Codecs&platform.CodecAV1 != 0 {
		st.SupportedVideoFormats |= VideoFormatAV1Main8
		if hdr {
			st.SupportedVideoFormats |= VideoFormatAV1Main10
		}
	}
	if st.SupportedVideoFormats == 0 {
		st.SupportedVideoFormats = VideoFormatH264
	}

	switch {
	case vcap.ColorSpace&platform.ColorSpaceBT2020 != 0 && st.SupportedVideoFormats&^VideoFormatMaskH264 != 0:
		st.ColorSpace = ColorSpaceRec2020
	case vcap.ColorSpace&platform.ColorSpaceBT709 != 0:
		st.ColorSpace = ColorSpaceRec709
	default:
		st.ColorSpace = ColorSpaceRec601
	}
	if vcap.FullColorRange {
		st.ColorRange = ColorRangeFull
	}

	st.AudioConfiguration = audioConfig(s.AudioLayout(), acap.MaxChannels)
	st.EncryptionFlags = EncryptAudio
	return cfg
}

func audioConfig(layout settings.AudioLayout, maxChannels int) AudioConfig {
	var ac AudioConfig
	switch layout {
	case settings.AudioStereo:
		ac = AudioConfigStereo
	case settings.AudioSurround:
		ac = AudioConfig51Surround
	case settings.Audio71:
		ac = AudioConfig71Surround
	default:
		return AudioConfigStereo
	}
	if maxChannels <= 0 || ac.Channels() <= maxChannels {
		return ac
	}
	switch {
	case maxChannels >= 8:
		return AudioConfig71Surround
	case maxChannels >= 6:
		return AudioConfig51Surround
	default:
		return AudioConfigStereo
	}
}
