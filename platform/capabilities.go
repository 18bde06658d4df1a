// Package platform describes what the local decoder and presenter can do.
package platform

import (
	"fmt"
	"strings"
)

// VideoCodec is a bitmask of decodable codecs.
type VideoCodec uint32

const (
	CodecH264 VideoCodec = 1 << iota
	CodecH265
	CodecAV1
)

// ColorSpace is a bitmask of supported color spaces.
type ColorSpace uint32

const (
	ColorSpaceBT601 ColorSpace = 1 << iota
	ColorSpaceBT709
	ColorSpaceBT2020
)

// Transform is a bitmask of presentation transforms the platform performs itself.
type Transform uint32

const (
	// TransformUICompositing means the platform composites the UI over video,
	// so the video display area must not be changed for overlays.
	TransformUICompositing Transform = 1 << iota
)

// VideoCapabilities is a read-only snapshot of the video decoder.
type VideoCapabilities struct {
	Codecs         VideoCodec
	HDR            bool
	MaxBitrate     int // kbps, 0 when unlimited
	ColorSpace     ColorSpace
	FullColorRange bool
	Transform      Transform
}

// AudioCapabilities is a read-only snapshot of the audio renderer.
type AudioCapabilities struct {
	MaxChannels int
}

// Config describes the platform capabilities on the command line.
type Config struct {
	Codecs        []string `help:"Decodable video codecs (h264, h265, av1)" default:"h264,h265" env:"VIISTREAM_PLATFORM_CODECS"`
	HDR           bool     `name:"hdr" help:"Decoder and display support 10-bit HDR" default:"false" env:"VIISTREAM_PLATFORM_HDR"`
	MaxBitrate    int      `help:"Maximum decodable bitrate in kbps; 0 for no limit" default:"0" env:"VIISTREAM_PLATFORM_MAX_BITRATE"`
	ColorSpaces   []string `help:"Supported color spaces (bt601, bt709, bt2020)" default:"bt601,bt709" env:"VIISTREAM_PLATFORM_COLOR_SPACES"`
	FullRange     bool     `help:"Decoder outputs full color range" default:"false" env:"VIISTREAM_PLATFORM_FULL_RANGE"`
	UICompositing bool     `name:"ui-compositing" help:"Platform composites UI over video" default:"false" env:"VIISTREAM_PLATFORM_UI_COMPOSITING"`
	MaxChannels   int      `help:"Maximum audio channel count" default:"2" env:"VIISTREAM_PLATFORM_MAX_CHANNELS"`
}

// Capabilities parses the configured capabilities.
func (c Config) Capabilities() (VideoCapabilities, AudioCapabilities, error) {
	vcap := VideoCapabilities{
		HDR:            c.HDR,
		MaxBitrate:     c.MaxBitrate,
		FullColorRange: c.FullRange,
	}
	for _, name := range c.Codecs {
		codec, err := ParseCodec(name)
		if err != nil {
			return VideoCapabilities{}, AudioCapabilities{}, err
		}
		vcap.Codecs |= codec
	}
	for _, name := range c.ColorSpaces {
		cs, err := ParseColorSpace(name)
		if err != nil {
			return VideoCapabilities{}, AudioCapabilities{}, err
		}
		vcap.ColorSpace |= cs
	}
	if c.UICompositing {
		vcap.Transform |= TransformUICompositing
	}
	if c.MaxBitrate < 0 {
		return VideoCapabilities{}, AudioCapabilities{}, fmt.Errorf("invalid max bitrate %d", c.MaxBitrate)
	}
	return vcap, AudioCapabilities{MaxChannels: c.MaxChannels}, nil
}

// ParseCodec resolves a codec name.
func ParseCodec(name string) (VideoCodec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "h264", "avc":
		return CodecH264, nil
	case "h265", "hevc":
		return CodecH265, nil
	case "av1":
		return CodecAV1, nil
	}
	return 0, fmt.Errorf("unknown codec %q", name)
}

// ParseColorSpace resolves a color space name.
func ParseColorSpace(name string) (ColorSpace, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bt601", "601":
		return ColorSpaceBT601, nil
	case "bt709", "709":
		return ColorSpaceBT709, nil
	case "bt2020", "2020":
		return ColorSpaceBT2020, nil
	}
	return 0, fmt.Errorf("unknown color space %q", name)
}
