package session

import "github.com/Alia5/viistream/platform"

// luminanceScale converts cd/m2 to the 0.0001 cd/m2 units of SEI metadata.
const luminanceScale = 10000

// DeriveHDRInfo builds player HDR metadata for a stream. Without host metadata
// (ok false) a 1000 nit DCI-P3 mastering display is assumed.
func DeriveHDRInfo(stream StreamConfig, meta HDRMetadata, ok bool) platform.HDRInfo {
	var info platform.HDRInfo
	if ok {
		for i, p := range meta.DisplayPrimaries {
			info.DisplayPrimariesX[i] = p.X
			info.DisplayPrimariesY[i] = p.Y
		}
		info.WhitePointX = meta.WhitePoint.X
		info.WhitePointY = meta.WhitePoint.Y
		info.MaxDisplayMasteringLuminance = uint32(meta.MaxDisplayLuminance) * luminanceScale
		info.MinDisplayMasteringLuminance = uint32(meta.MinDisplayLuminance)
		info.MaxContentLightLevel = meta.MaxContentLightLevel
		info.MaxPicAverageLightLevel = meta.MaxFrameAverageLightLevel
	} else {
		info = platform.HDRInfo{
			DisplayPrimariesX:            [3]uint16{34000, 13250, 7500},
			DisplayPrimariesY:            [3]uint16{16000, 34500, 3000},
			WhitePointX:                  15635,
			WhitePointY:                  16450,
			MaxDisplayMasteringLuminance: 1000 * luminanceScale,
			MinDisplayMasteringLuminance: 50,
			MaxContentLightLevel:         1000,
			MaxPicAverageLightLevel:      400,
		}
	}

	// ITU-T H.273 code points.
	switch stream.ColorSpace {
	case ColorSpaceRec601:
		info.ColorPrimaries, info.TransferCharacteristics, info.MatrixCoefficients = 6, 6, 6
	case ColorSpaceRec709:
		info.ColorPrimaries, info.TransferCharacteristics, info.MatrixCoefficients = 1, 1, 1
	case ColorSpaceRec2020:
		// BT.2020 primaries, SMPTE ST 2084 transfer, BT.2020 NCL matrix
		info.ColorPrimaries, info.TransferCharacteristics, info.MatrixCoefficients = 9, 16, 9
	}
	info.VideoFullRange = stream.ColorRange == ColorRangeFull
	return info
}
