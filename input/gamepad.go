package input

import (
	"log/slog"
	"math"

	"github.com/Alia5/viistream/device/xbox360"
	"github.com/Alia5/viistream/internal/metrics"
)

// QuitCombo is the button combination that, once released, opens the overlay.
const QuitCombo = xbox360.ButtonStart | xbox360.ButtonBack | xbox360.ButtonLShoulder | xbox360.ButtonRShoulder

// Sink receives the controller and mouse events produced by the translator.
// Implementations must be safe for concurrent use: the virtual mouse sends from
// its own goroutine.
type Sink interface {
	MouseSink
	SendMultiController(slot uint8, activeMask uint16, state xbox360.InputState) error
}

// OverlayRequester is notified, fire-and-forget, when the quit combo resolves.
type OverlayRequester interface {
	RequestOverlay()
}

// OverlayFunc adapts a function to OverlayRequester.
type OverlayFunc func()

func (f OverlayFunc) RequestOverlay() { f() }

// Gamepad translates raw controller events into controller state events.
// It must be driven from a single goroutine.
type Gamepad struct {
	registry   *Registry
	sink       Sink
	overlay    OverlayRequester
	vmouse     *VirtualMouse
	swapABXY   bool
	suppressed func() bool
	mode       func() VMouseMode
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func (g *Gamepad) buttonFlag(b Button) (uint32, bool) {
	switch b {
	case ButtonA:
		if g.swapABXY {
			return xbox360.ButtonB, true
		}
		return xbox360.ButtonA, true
	case ButtonB:
		if g.swapABXY {
			return xbox360.ButtonA, true
		}
		return xbox360.ButtonB, true
	case ButtonY:
		if g.swapABXY {
			return xbox360.ButtonX, true
		}
		return xbox360.ButtonY, true
	case ButtonX:
		if g.swapABXY {
			return xbox360.ButtonY, true
		}
		return xbox360.ButtonX, true
	case ButtonDPadUp:
		return xbox360.ButtonDPadUp, true
	case ButtonDPadDown:
		return xbox360.ButtonDPadDown, true
	case ButtonDPadRight:
		return xbox360.ButtonDPadRight, true
	case ButtonDPadLeft:
		return xbox360.ButtonDPadLeft, true
	case ButtonBack:
		return xbox360.ButtonBack, true
	case ButtonStart:
		return xbox360.ButtonStart, true
	case ButtonGuide:
		return xbox360.ButtonGuide, true
	case ButtonLeftStick:
		return xbox360.ButtonLThumb, true
	case ButtonRightStick:
		return xbox360.ButtonRThumb, true
	case ButtonLeftShoulder:
		return xbox360.ButtonLShoulder, true
	case ButtonRightShoulder:
		return xbox360.ButtonRShoulder, true
	}
	return 0, false
}

// HandleButton applies a button event to its slot and forwards the new state.
func (g *Gamepad) HandleButton(ev ButtonEvent) error {
	flag, ok := g.buttonFlag(ev.Button)
	if !ok {
		return nil
	}
	slot := g.registry.Resolve(ev.Device)
	if ev.Pressed {
		slot.State.Buttons |= flag
	} else {
		slot.State.Buttons &^= flag
	}

	if slot.State.Buttons&QuitCombo == QuitCombo {
		if !slot.comboArmed {
			g.logger.Debug("quit combo armed", "slot", slot.Index)
		}
		slot.comboArmed = true
		return nil
	}
	if slot.comboArmed {
		if slot.State.Buttons != 0 {
			return nil
		}
		slot.comboArmed = false
		slot.State = xbox360.InputState{}
		var err error
		if !g.suppressed() {
			err = g.send(slot)
		}
		g.logger.Info("quit combo released, requesting overlay", "slot", slot.Index)
		g.metrics.IncOverlayRequests()
		if g.overlay != nil {
			g.overlay.RequestOverlay()
		}
		return err
	}

	if g.suppressed() {
		return nil
	}
	return g.send(slot)
}

// HandleAxis applies an axis event to its slot and forwards the new state, or
// feeds the virtual mouse when that stick drives it.
func (g *Gamepad) HandleAxis(ev AxisEvent) error {
	slot := g.registry.Resolve(ev.Device)
	mode := g.mode()
	intercepted := false
	switch ev.Axis {
	case AxisLeftX:
		slot.State.LX = negate(ev.Value)
		intercepted = mode == VMouseLeftStick
	case AxisLeftY:
		slot.State.LY = negate(ev.Value)
		intercepted = mode == VMouseLeftStick
	case AxisRightX:
		slot.State.RX = negate(ev.Value)
		intercepted = mode == VMouseRightStick
	case AxisRightY:
		slot.State.RY = negate(ev.Value)
		intercepted = mode == VMouseRightStick
	case AxisTriggerLeft:
		slot.State.LT = ScaleTrigger(ev.Value)
	case AxisTriggerRight:
		slot.State.RT = ScaleTrigger(ev.Value)
	default:
		return nil
	}

	if g.suppressed() || slot.comboArmed {
		return nil
	}
	if intercepted {
		if mode == VMouseLeftStick {
			g.vmouse.SetStick(slot.State.LX, slot.State.LY)
		} else {
			g.vmouse.SetStick(slot.State.RX, slot.State.RY)
		}
		return nil
	}
	return g.send(slot)
}

// ScaleTrigger maps a trigger reading in 0..32767 to 0..255. Negative readings
// count as released.
func ScaleTrigger(v int16) uint8 {
	if v <= 0 {
		return 0
	}
	return uint8(int(v) * math.MaxUint8 / math.MaxInt16)
}

func (g *Gamepad) send(slot *Slot) error {
	if err := g.sink.SendMultiController(slot.Index, g.registry.ActiveMask(), slot.State); err != nil {
		return err
	}
	g.metrics.IncControllerEvents()
	return nil
}
