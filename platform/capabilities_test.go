package platform_test

import (
	"testing"

	"github.com/Alia5/viistream/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCapabilities(t *testing.T) {
	type testCase struct {
		name    string
		cfg     platform.Config
		want    platform.VideoCapabilities
		audio   platform.AudioCapabilities
		wantErr bool
	}
	cases := []testCase{
		{
			name:  "defaults",
			cfg:   platform.Config{Codecs: []string{"h264", "h265"}, ColorSpaces: []string{"bt601", "bt709"}, MaxChannels: 2},
			want:  platform.VideoCapabilities{Codecs: platform.CodecH264 | platform.CodecH265, ColorSpace: platform.ColorSpaceBT601 | platform.ColorSpaceBT709},
			audio: platform.AudioCapabilities{MaxChannels: 2},
		},
		{
			name: "everything",
			cfg: platform.Config{
				Codecs: []string{"AVC", "hevc", "av1"}, HDR: true, MaxBitrate: 15000,
				ColorSpaces: []string{"2020"}, FullRange: true, UICompositing: true, MaxChannels: 8,
			},
			want: platform.VideoCapabilities{
				Codecs: platform.CodecH264 | platform.CodecH265 | platform.CodecAV1, HDR: true, MaxBitrate: 15000,
				ColorSpace: platform.ColorSpaceBT2020, FullColorRange: true, Transform: platform.TransformUICompositing,
			},
			audio: platform.AudioCapabilities{MaxChannels: 8},
		},
		{name: "unknown codec", cfg: platform.Config{Codecs: []string{"vp9"}}, wantErr: true},
		{name: "unknown color space", cfg: platform.Config{ColorSpaces: []string{"p3"}}, wantErr: true},
		{name: "negative bitrate", cfg: platform.Config{MaxBitrate: -5}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vcap, acap, err := tc.cfg.Capabilities()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, vcap)
			assert.Equal(t, tc.audio, acap)
		})
	}
}

func TestLogPlayerRecordsState(t *testing.T) {
	p := platform.NewLogPlayer(nil)
	assert.Nil(t, p.DisplayArea())
	assert.Nil(t, p.HDRInfo())

	p.SetDisplayArea(nil, &platform.Rect{X: 10, Y: 20, W: 640, H: 360})
	require.NotNil(t, p.DisplayArea())
	assert.Equal(t, platform.Rect{X: 10, Y: 20, W: 640, H: 360}, *p.DisplayArea())
	p.SetDisplayArea(nil, nil)
	assert.Nil(t, p.DisplayArea())

	p.SetHDRInfo(&platform.HDRInfo{MaxContentLightLevel: 1000})
	require.NotNil(t, p.HDRInfo())
	assert.Equal(t, uint16(1000), p.HDRInfo().MaxContentLightLevel)
	p.SetHDRInfo(nil)
	assert.Nil(t, p.HDRInfo())
}
