package session

import (
	"fmt"
	"log/slog"
)

// The Session is the Listener of its own transport.
var _ Listener = (*Session)(nil)

func (s *Session) StageStarting(stage int) {
	s.logger.Debug("stage starting", "stage", s.transport.StageName(stage))
}

func (s *Session) StageComplete(stage int) {
	s.logger.Debug("stage complete", "stage", s.transport.StageName(stage))
}

// StageFailed records the failure. The transport follows up with
// ConnectionTerminated if the connection cannot continue.
func (s *Session) StageFailed(stage int, errorCode int) {
	name := s.transport.StageName(stage)
	s.logger.Error("connection stage failed", "stage", name, "errorCode", errorCode)
	s.setError(errorCode, "Connection failed at %s, errorCode = %d", name, errorCode)
	s.metrics.IncStageFailures()
}

func (s *Session) ConnectionStarted() {
	s.logger.Info("connection started")
}

// ConnectionTerminated interrupts the session with a generic stream error.
func (s *Session) ConnectionTerminated(errorCode int) {
	s.logger.Error("connection terminated", "errorCode", fmt.Sprintf("0x%x", errorCode))
	s.interrupt(false, ReasonError, errorCode, fmt.Sprintf("Connection terminated, errorCode = 0x%x", errorCode))
}

func (s *Session) ConnectionStatusUpdate(status ConnStatus) {
	switch status {
	case ConnStatusOkay:
		s.logger.Info("connection is okay")
	case ConnStatusPoor:
		s.logger.Warn("connection is poor")
	}
	s.watchdog.Feed()
	s.metrics.SetConnectionOkay(status == ConnStatusOkay)
}

func (s *Session) LogMessage(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...), slog.String("component", "transport"))
}

func (s *Session) Rumble(slot uint8, lowFreq, highFreq uint16) {
	s.logger.Debug("rumble", "slot", slot, "low", lowFreq, "high", highFreq)
}
