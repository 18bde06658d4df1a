// Package input translates physical controller input into the controller and
// mouse events streamed to the remote peer.
//
// Raw events must be delivered from one goroutine at a time (see Subsystem.Run).
// Control methods (Start, Stop, SetBlocked, Interrupt, ToggleVMouse) may be
// called from any goroutine.
package input

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Alia5/viistream/internal/metrics"
)

// Options configures a Subsystem.
type Options struct {
	Sink    Sink
	Overlay OverlayRequester
	// OnError receives errors returned by the sink.
	OnError func(error)

	SwapABXY     bool
	ViewOnly     bool
	VirtualMouse bool
	VMouseSpeed  int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Subsystem owns the input state of one session.
type Subsystem struct {
	mu          sync.Mutex
	started     bool
	blocked     bool
	interrupted bool

	viewOnly      bool
	vmouseAllowed bool
	mode          atomic.Int32
	suppressed    atomic.Bool

	registry *Registry
	gamepad  *Gamepad
	vmouse   *VirtualMouse
	onError  func(error)
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New builds an input subsystem. Input starts stopped and suppressed.
func New(o Options) *Subsystem {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "input")
	speed := o.VMouseSpeed
	if speed == 0 {
		speed = DefaultVMouseSpeed
	}

	s := &Subsystem{
		viewOnly:      o.ViewOnly,
		vmouseAllowed: o.VirtualMouse,
		registry:      NewRegistry(),
		onError:       o.OnError,
		logger:        logger,
		metrics:       o.Metrics,
	}
	s.suppressed.Store(true)

	s.vmouse = NewVirtualMouse(o.Sink, speed, func() bool {
		return s.VMouseMode() != VMouseOff && !s.suppressed.Load()
	})
	s.vmouse.onSent = o.Metrics.IncMouseMoves
	s.vmouse.onError = s.reportError

	s.gamepad = &Gamepad{
		registry:   s.registry,
		sink:       o.Sink,
		overlay:    o.Overlay,
		vmouse:     s.vmouse,
		swapABXY:   o.SwapABXY,
		suppressed: s.suppressed.Load,
		mode:       s.VMouseMode,
		logger:     logger,
		metrics:    o.Metrics,
	}
	return s
}

// Registry returns the controller slot registry.
func (s *Subsystem) Registry() *Registry { return s.registry }

// VirtualMouse returns the virtual mouse emulator.
func (s *Subsystem) VirtualMouse() *VirtualMouse { return s.vmouse }

// HandleButton translates one button event.
func (s *Subsystem) HandleButton(ev ButtonEvent) {
	if err := s.gamepad.HandleButton(ev); err != nil {
		s.reportError(err)
	}
	s.metrics.SetActiveControllers(s.registry.Count())
}

// HandleAxis translates one axis event.
func (s *Subsystem) HandleAxis(ev AxisEvent) {
	if err := s.gamepad.HandleAxis(ev); err != nil {
		s.reportError(err)
	}
	s.metrics.SetActiveControllers(s.registry.Count())
}

// Run delivers events one at a time until ctx is done or events is closed.
// It is the single serialized input-delivery context.
func (s *Subsystem) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case ButtonEvent:
				s.HandleButton(e)
			case AxisEvent:
				s.HandleAxis(e)
			}
		}
	}
}

// Start lets input flow to the peer.
func (s *Subsystem) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.update()
	s.logger.Debug("input started")
}

// Stop suppresses input to the peer.
func (s *Subsystem) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.update()
	s.logger.Debug("input stopped")
}

// Started reports whether Start was called more recently than Stop.
func (s *Subsystem) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// SetBlocked blocks input while the UI overlay has focus.
func (s *Subsystem) SetBlocked(blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = blocked
	s.update()
}

// Interrupt permanently stops event emission for this session.
func (s *Subsystem) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = true
	s.update()
}

// Accepting reports whether events currently reach the peer.
func (s *Subsystem) Accepting() bool {
	return !s.suppressed.Load()
}

// VMouseMode returns the current virtual mouse mode.
func (s *Subsystem) VMouseMode() VMouseMode {
	return VMouseMode(s.mode.Load())
}

// SetVMouseActive switches the virtual mouse between off and right-stick mode.
// It stays off when the session does not allow the virtual mouse.
func (s *Subsystem) SetVMouseActive(active bool) {
	mode := VMouseOff
	if active && s.vmouseAllowed {
		mode = VMouseRightStick
	}
	s.mode.Store(int32(mode))
	if mode == VMouseOff {
		s.vmouse.Stop()
	}
	s.logger.Info("virtual mouse", "mode", mode)
}

// ToggleVMouse flips the virtual mouse and returns whether it is now active.
func (s *Subsystem) ToggleVMouse() bool {
	s.SetVMouseActive(s.vmouseAllowed && s.VMouseMode() == VMouseOff)
	return s.VMouseMode() != VMouseOff
}

// Close stops the virtual mouse. The subsystem must not be used afterwards.
func (s *Subsystem) Close() {
	s.Interrupt()
	s.vmouse.Stop()
}

// update recomputes the suppression flag; s.mu must be held.
func (s *Subsystem) update() {
	suppressed := !s.started || s.blocked || s.interrupted || s.viewOnly
	s.suppressed.Store(suppressed)
	if suppressed {
		s.vmouse.Stop()
	}
}

func (s *Subsystem) reportError(err error) {
	s.logger.Warn("failed to send input", "error", err)
	if s.onError != nil {
		s.onError(err)
	}
}
