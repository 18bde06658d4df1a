package platform

import (
	"log/slog"
	"sync"
)

// Rect is a rectangle in display pixels.
type Rect struct {
	X, Y, W, H int
}

// HDRInfo is the static HDR metadata handed to the video player.
type HDRInfo struct {
	DisplayPrimariesX [3]uint16
	DisplayPrimariesY [3]uint16
	WhitePointX       uint16
	WhitePointY       uint16

	MaxDisplayMasteringLuminance uint32
	MinDisplayMasteringLuminance uint32
	MaxContentLightLevel         uint16
	MaxPicAverageLightLevel      uint16

	ColorPrimaries          uint8
	TransferCharacteristics uint8
	MatrixCoefficients      uint8
	VideoFullRange          bool
}

// Player is the video presenter of a running stream.
type Player interface {
	// SetDisplayArea crops to src and scales into dst; nil means the full frame or screen.
	SetDisplayArea(src, dst *Rect)
	// SetHDRInfo switches HDR output on with the given metadata, or off when info is nil.
	SetHDRInfo(info *HDRInfo)
}

// LogPlayer is a Player without a display that records and logs what it is asked to do.
type LogPlayer struct {
	logger *slog.Logger

	mu   sync.Mutex
	dst  *Rect
	info *HDRInfo
}

// NewLogPlayer creates a LogPlayer.
func NewLogPlayer(logger *slog.Logger) *LogPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPlayer{logger: logger.With("component", "player")}
}

func (p *LogPlayer) SetDisplayArea(src, dst *Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dst == nil {
		p.dst = nil
		p.logger.Debug("display area reset")
		return
	}
	r := *dst
	p.dst = &r
	p.logger.Debug("display area", "x", r.X, "y", r.Y, "w", r.W, "h", r.H)
}

func (p *LogPlayer) SetHDRInfo(info *HDRInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info == nil {
		p.info = nil
		p.logger.Debug("hdr off")
		return
	}
	i := *info
	p.info = &i
	p.logger.Debug("hdr on", "maxLuminance", i.MaxDisplayMasteringLuminance, "primaries", i.ColorPrimaries)
}

// DisplayArea returns the current destination rectangle, nil for fullscreen.
func (p *LogPlayer) DisplayArea() *Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dst == nil {
		return nil
	}
	r := *p.dst
	return &r
}

// HDRInfo returns the current HDR metadata, nil when HDR is off.
func (p *LogPlayer) HDRInfo() *HDRInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil {
		return nil
	}
	i := *p.info
	return &i
}
