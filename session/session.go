// Package session owns the lifecycle of one stream: configuration, the
// background worker driving the transport, input, and the single interruption
// path.
//
// Lock order: Session.mu, then the input subsystem's locks. Transport
// listener callbacks only take Session.mu.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/viistream/input"
	"github.com/Alia5/viistream/internal/metrics"
	"github.com/Alia5/viistream/platform"
	"github.com/google/uuid"
)

// State is the lifecycle state of a session.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateInterrupted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateInterrupted:
		return "interrupted"
	case StateTerminated:
		return "terminated"
	default:
		return "created"
	}
}

// Options configures a new Session.
type Options struct {
	Config    Config
	Server    ServerInfo
	App       AppInfo
	VideoCap  platform.VideoCapabilities
	AudioCap  platform.AudioCapabilities
	Transport Transport
	// Player is optional; display area and HDR changes are skipped without one.
	Player platform.Player
	// Overlay receives the quit combo's overlay requests.
	Overlay input.OverlayRequester
	// OnInterrupt is called once, outside any session lock, after interruption.
	OnInterrupt func(reason Reason, err *StreamingError)

	DisplayWidth  int
	DisplayHeight int
	// WatchdogTimeout interrupts the session when the transport stops reporting
	// status for this long. Zero disables it.
	WatchdogTimeout time.Duration
	// AutoStartInput starts input once the transport is up.
	AutoStartInput bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session is one streaming session. It is created running and must be
// released with Destroy.
type Session struct {
	ID uuid.UUID

	config    Config
	app       AppInfo
	vcap      platform.VideoCapabilities
	acap      platform.AudioCapabilities
	transport Transport
	player    platform.Player
	input     *input.Subsystem
	watchdog  *Watchdog

	onInterrupt func(Reason, *StreamingError)
	autoInput   bool
	logger      *slog.Logger
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu            sync.Mutex
	cond          *sync.Cond
	state         State
	interrupted   bool
	quitApp       bool
	reason        Reason
	lastErr       *StreamingError
	server        *ServerInfo
	displayWidth  int
	displayHeight int
	hdr           bool
}

// New creates a session and starts its worker.
func New(o Options) (*Session, error) {
	if o.Transport == nil {
		return nil, ErrNoTransport
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	logger = logger.With("session", id.String())

	cfg := o.Config
	server := o.Server.Clone()
	server.CodecModeSupport = CodecModes(cfg.Stream.SupportedVideoFormats)
	if cfg.SOPS && !server.SupportsMode(cfg.Stream.Width, cfg.Stream.Height, cfg.Stream.FPS) {
		logger.Info("host does not offer the stream mode, not optimizing game settings",
			"width", cfg.Stream.Width, "height", cfg.Stream.Height, "fps", cfg.Stream.FPS)
		cfg.SOPS = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:            id,
		config:        cfg,
		app:           o.App,
		vcap:          o.VideoCap,
		acap:          o.AudioCap,
		transport:     o.Transport,
		player:        o.Player,
		onInterrupt:   o.OnInterrupt,
		autoInput:     o.AutoStartInput,
		logger:        logger,
		metrics:       o.Metrics,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		server:        server,
		displayWidth:  o.DisplayWidth,
		displayHeight: o.DisplayHeight,
	}
	s.cond = sync.NewCond(&s.mu)
	s.input = input.New(input.Options{
		Sink:         o.Transport,
		Overlay:      o.Overlay,
		OnError:      s.inputError,
		SwapABXY:     cfg.SwapABXY,
		ViewOnly:     cfg.ViewOnly,
		VirtualMouse: cfg.VirtualMouse,
		VMouseSpeed:  cfg.VMouseSpeed,
		Logger:       logger,
		Metrics:      o.Metrics,
	})
	s.watchdog = NewWatchdog(o.WatchdogTimeout, func() {
		s.logger.Warn("no connection status within watchdog timeout", "timeout", o.WatchdogTimeout)
		s.interrupt(false, ReasonWatchdog, 0, "")
	})

	logger.Info("session created",
		"app", o.App.Name,
		"host", server.Name,
		"resolution", fmt.Sprintf("%dx%d@%d", cfg.Stream.Width, cfg.Stream.Height, cfg.Stream.FPS),
		"bitrate", cfg.Stream.Bitrate,
		"formats", fmt.Sprintf("0x%04x", uint32(cfg.Stream.SupportedVideoFormats)),
		"colorSpace", cfg.Stream.ColorSpace,
		"audioChannels", cfg.Stream.AudioConfiguration.Channels(),
	)
	go s.run(*server)
	return s, nil
}

func (s *Session) run(server ServerInfo) {
	defer close(s.done)

	s.mu.Lock()
	if s.state == StateCreated {
		s.state = StateRunning
	}
	s.mu.Unlock()

	if err := s.transport.Start(s.ctx, s.config, server, s.app, s); err != nil {
		s.logger.Error("failed to start connection", "error", err)
		s.interrupt(false, ReasonError, 0, fmt.Sprintf("Failed to start connection: %v", err))
	} else {
		s.watchdog.Start()
		if s.autoInput {
			s.input.Start()
		}
	}

	s.mu.Lock()
	for !s.interrupted {
		s.cond.Wait()
	}
	quitApp := s.quitApp
	s.mu.Unlock()

	s.watchdog.Stop()
	if err := s.transport.Stop(quitApp); err != nil {
		s.logger.Warn("failed to stop connection", "error", err, "quitApp", quitApp)
	}
	s.logger.Debug("session worker finished")
}

// Interrupt requests the session to stop. Only the first call has an effect.
func (s *Session) Interrupt(quitApp bool, reason Reason) {
	s.interrupt(quitApp, reason, 0, "")
}

// interrupt is the single interruption path. For error reasons it records
// detail, or the reason's message when detail is empty, with code, or the
// reason when code is 0.
func (s *Session) interrupt(quitApp bool, reason Reason, code int, detail string) bool {
	s.mu.Lock()
	if s.interrupted {
		s.mu.Unlock()
		return false
	}
	s.input.Interrupt()
	s.interrupted = true
	s.quitApp = quitApp
	s.reason = reason
	if s.state < StateInterrupted {
		s.state = StateInterrupted
	}
	var recorded *StreamingError
	if reason.IsError() {
		if detail == "" {
			detail = reason.Message()
		}
		if code == 0 {
			code = int(reason)
		}
		s.lastErr = newStreamingError(code, "%s", detail)
		recorded = s.lastErr
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	s.cancel()
	s.metrics.IncInterrupts(reason.String())
	if recorded != nil {
		s.logger.Error("session interrupted", "reason", reason, "quitApp", quitApp, "error", recorded.Message)
	} else {
		s.logger.Info("session interrupted", "reason", reason, "quitApp", quitApp)
	}
	if s.onInterrupt != nil {
		s.onInterrupt(reason, recorded)
	}
	return true
}

// Destroy interrupts the session if needed, waits for the worker and releases
// the session's resources. It is safe to call more than once.
func (s *Session) Destroy() {
	s.once.Do(func() {
		s.interrupt(false, ReasonQuit, 0, "")
		s.input.Close()
		<-s.done
		s.watchdog.Stop()

		s.mu.Lock()
		s.server = nil
		s.state = StateTerminated
		s.mu.Unlock()
		s.logger.Info("session destroyed")
	})
}

// Done is closed when the worker has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interrupted reports whether the session was interrupted, and why.
func (s *Session) Interrupted() (bool, Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted, s.reason
}

// LastError returns a copy of the last recorded error, or nil.
func (s *Session) LastError() *StreamingError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	e := *s.lastErr
	return &e
}

func (s *Session) setError(code int, format string, args ...any) {
	e := newStreamingError(code, format, args...)
	s.mu.Lock()
	s.lastErr = e
	s.mu.Unlock()
}

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.config }

// Server returns a copy of the host snapshot, nil after Destroy.
func (s *Session) Server() *ServerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Clone()
}

// Input returns the session's input subsystem.
func (s *Session) Input() *input.Subsystem { return s.input }

func (s *Session) inputError(err error) {
	if errors.Is(err, ErrNetwork) {
		s.interrupt(false, ReasonNetwork, 0, "")
	}
}

// StartInput lets input reach the host.
func (s *Session) StartInput() { s.input.Start() }

// StopInput keeps input from reaching the host.
func (s *Session) StopInput() { s.input.Stop() }

// ToggleVMouse flips the virtual mouse and returns whether it is now on.
// It stays off unless the configuration enables the virtual mouse.
func (s *Session) ToggleVMouse() bool {
	on := s.input.ToggleVMouse()
	s.logger.Info("virtual mouse toggled", "active", on)
	return on
}

// EnterOverlay blocks input and shrinks the video into the given rectangle.
func (s *Session) EnterOverlay(x, y, w, h int) {
	s.input.SetBlocked(true)
	if s.player == nil || s.vcap.Transform&platform.TransformUICompositing != 0 {
		return
	}
	s.player.SetDisplayArea(nil, &platform.Rect{X: x, Y: y, W: w, H: h})
}

// EnterFullscreen restores the full video area and unblocks input.
func (s *Session) EnterFullscreen() {
	s.input.SetBlocked(false)
	if s.player == nil || s.vcap.Transform&platform.TransformUICompositing != 0 {
		return
	}
	s.player.SetDisplayArea(nil, nil)
}

// SetDisplaySize records the size of the output display.
func (s *Session) SetDisplaySize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayWidth = width
	s.displayHeight = height
}

// DisplaySize returns the size of the output display.
func (s *Session) DisplaySize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayWidth, s.displayHeight
}

// SetHDR switches HDR presentation. Metadata from the host is used when
// available, otherwise a generic mastering display is assumed.
func (s *Session) SetHDR(enabled bool) {
	s.logger.Info("hdr changed", "enabled", enabled)
	s.mu.Lock()
	s.hdr = enabled
	s.mu.Unlock()
	if s.player == nil {
		return
	}
	if !enabled {
		s.player.SetHDRInfo(nil)
		return
	}
	meta, ok := s.transport.HDRMetadata()
	info := DeriveHDRInfo(s.config.Stream, meta, ok)
	s.player.SetHDRInfo(&info)
}

// Status is a point-in-time view of a session.
type Status struct {
	ID                string          `json:"id"`
	State             string          `json:"state"`
	Interrupted       bool            `json:"interrupted"`
	Reason            string          `json:"reason,omitempty"`
	LastError         *StreamingError `json:"lastError,omitempty"`
	ActiveControllers uint16          `json:"activeControllers"`
	InputAccepting    bool            `json:"inputAccepting"`
	VMouseMode        string          `json:"vmouseMode"`
	VMouseActive      bool            `json:"vmouseActive"`
	DisplayWidth      int             `json:"displayWidth"`
	DisplayHeight     int             `json:"displayHeight"`
	HDR               bool            `json:"hdr"`
	Config            Config          `json:"config"`
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		ID:            s.ID.String(),
		State:         s.state.String(),
		Interrupted:   s.interrupted,
		DisplayWidth:  s.displayWidth,
		DisplayHeight: s.displayHeight,
		HDR:           s.hdr,
		Config:        s.config,
	}
	if s.interrupted {
		st.Reason = s.reason.String()
	}
	if s.lastErr != nil {
		e := *s.lastErr
		st.LastError = &e
	}
	s.mu.Unlock()

	st.ActiveControllers = s.input.Registry().ActiveMask()
	st.InputAccepting = s.input.Accepting()
	st.VMouseMode = s.input.VMouseMode().String()
	st.VMouseActive = s.input.VirtualMouse().Active()
	return st
}
