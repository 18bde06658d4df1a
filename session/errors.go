package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNetwork marks transport write failures. Input errors wrapping it
	// interrupt the session with ReasonNetwork.
	ErrNetwork = errors.New("network error")
	// ErrNoTransport is returned by New without a transport.
	ErrNoTransport = errors.New("no transport")
)

// maxErrorMessage bounds StreamingError messages, in bytes.
const maxErrorMessage = 1023

// StreamingError is the last fatal or stage error of a session, shown to the user.
type StreamingError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newStreamingError(code int, format string, args ...any) *StreamingError {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
		for !utf8.ValidString(msg) {
			msg = msg[:len(msg)-1]
		}
	}
	return &StreamingError{Code: code, Message: msg}
}

func (e *StreamingError) Error() string { return e.Message }

// Reason classifies why a session was interrupted.
type Reason int

const (
	// ReasonQuit is a quit without user involvement, e.g. session teardown.
	ReasonQuit Reason = iota
	// ReasonUser is an explicit user request.
	ReasonUser
	// ReasonError and everything after it are errors.
	ReasonError
	ReasonWatchdog
	ReasonNetwork
	ReasonDecoder
)

var reasonNames = [...]string{"quit", "user", "error", "watchdog", "network", "decoder"}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// IsError reports whether the reason records a StreamingError.
func (r Reason) IsError() bool { return r >= ReasonError }

// Message is the user-facing text recorded for error reasons.
func (r Reason) Message() string {
	switch r {
	case ReasonWatchdog:
		return "Stream stalled"
	case ReasonNetwork:
		return "Network error happened"
	case ReasonDecoder:
		return "Decoder reported error"
	default:
		return "Error occurred while in streaming"
	}
}

// ParseReason resolves a reason by name.
func ParseReason(s string) (Reason, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range reasonNames {
		if n == s {
			return Reason(i), nil
		}
	}
	return 0, fmt.Errorf("unknown interrupt reason %q", s)
}
