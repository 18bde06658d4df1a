package session

import (
	"context"

	"github.com/Alia5/viistream/input"
)

// ConnStatus is the connection quality reported by the transport.
type ConnStatus int

const (
	ConnStatusOkay ConnStatus = iota
	ConnStatusPoor
)

func (c ConnStatus) String() string {
	if c == ConnStatusPoor {
		return "poor"
	}
	return "okay"
}

// Chromaticity is a CIE 1931 coordinate in units of 0.00002.
type Chromaticity struct {
	X, Y uint16
}

// HDRMetadata is the mastering metadata sent by the host.
type HDRMetadata struct {
	DisplayPrimaries          [3]Chromaticity
	WhitePoint                Chromaticity
	MaxDisplayLuminance       uint16 // cd/m2
	MinDisplayLuminance       uint16 // 0.0001 cd/m2
	MaxContentLightLevel      uint16
	MaxFrameAverageLightLevel uint16
}

// Listener receives connection events from a Transport. Calls may arrive
// from any goroutine. A transport must not hold locks needed by its send
// methods while calling the listener.
type Listener interface {
	StageStarting(stage int)
	StageComplete(stage int)
	StageFailed(stage int, errorCode int)
	ConnectionStarted()
	ConnectionTerminated(errorCode int)
	ConnectionStatusUpdate(status ConnStatus)
	LogMessage(format string, args ...any)
	Rumble(slot uint8, lowFreq, highFreq uint16)
}

// Transport carries a session's stream and input to the host.
//
// Start and Stop are called once each by the session worker. The send methods
// are called from the input goroutine and the virtual mouse concurrently.
type Transport interface {
	input.Sink
	Start(ctx context.Context, cfg Config, server ServerInfo, app AppInfo, l Listener) error
	// Stop tears the connection down; with quitApp the host application is closed too.
	Stop(quitApp bool) error
	HDRMetadata() (HDRMetadata, bool)
	StageName(stage int) string
}
