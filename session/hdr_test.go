package session_test

import (
	"testing"

	"github.com/Alia5/viistream/platform"
	"github.com/Alia5/viistream/session"
	"github.com/stretchr/testify/assert"
)

func TestDeriveHDRInfoDefaults(t *testing.T) {
	info := session.DeriveHDRInfo(session.StreamConfig{ColorSpace: session.ColorSpaceRec2020}, session.HDRMetadata{}, false)
	assert.Equal(t, platform.HDRInfo{
		DisplayPrimariesX:            [3]uint16{34000, 13250, 7500},
		DisplayPrimariesY:            [3]uint16{16000, 34500, 3000},
		WhitePointX:                  15635,
		WhitePointY:                  16450,
		MaxDisplayMasteringLuminance: 10000000,
		MinDisplayMasteringLuminance: 50,
		MaxContentLightLevel:         1000,
		MaxPicAverageLightLevel:      400,
		ColorPrimaries:               9,
		TransferCharacteristics:      16,
		MatrixCoefficients:           9,
	}, info)
}

func TestDeriveHDRInfoFromMetadata(t *testing.T) {
	meta := session.HDRMetadata{
		DisplayPrimaries:          [3]session.Chromaticity{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}},
		WhitePoint:                session.Chromaticity{X: 7, Y: 8},
		MaxDisplayLuminance:       600,
		MinDisplayLuminance:       10,
		MaxContentLightLevel:      550,
		MaxFrameAverageLightLevel: 300,
	}
	info := session.DeriveHDRInfo(session.StreamConfig{ColorSpace: session.ColorSpaceRec2020, ColorRange: session.ColorRangeFull}, meta, true)
	assert.Equal(t, [3]uint16{1, 3, 5}, info.DisplayPrimariesX)
	assert.Equal(t, [3]uint16{2, 4, 6}, info.DisplayPrimariesY)
	assert.Equal(t, uint16(7), info.WhitePointX)
	assert.Equal(t, uint16(8), info.WhitePointY)
	assert.Equal(t, uint32(600*10000), info.MaxDisplayMasteringLuminance)
	assert.Equal(t, uint32(10), info.MinDisplayMasteringLuminance)
	assert.Equal(t, uint16(550), info.MaxContentLightLevel)
	assert.Equal(t, uint16(300), info.MaxPicAverageLightLevel)
	assert.True(t, info.VideoFullRange)
}

func TestDeriveHDRInfoVUI(t *testing.T) {
	type testCase struct {
		name       string
		colorSpace session.ColorSpace
		want       [3]uint8
	}
	cases := []testCase{
		{name: "rec601", colorSpace: session.ColorSpaceRec601, want: [3]uint8{6, 6, 6}},
		{name: "rec709", colorSpace: session.ColorSpaceRec709, want: [3]uint8{1, 1, 1}},
		{name: "rec2020", colorSpace: session.ColorSpaceRec2020, want: [3]uint8{9, 16, 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := session.DeriveHDRInfo(session.StreamConfig{ColorSpace: tc.colorSpace}, session.HDRMetadata{}, false)
			assert.Equal(t, tc.want, [3]uint8{info.ColorPrimaries, info.TransferCharacteristics, info.MatrixCoefficients})
			assert.False(t, info.VideoFullRange)
		})
	}
}
