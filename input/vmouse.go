package input

import (
	"math"
	"sync"
	"time"
)

const (
	// VMouseThreshold is the stick deflection (of 32767) below which no motion is produced.
	VMouseThreshold = 4096
	// VMouseDivisor scales the square-root response down to pixels per tick.
	VMouseDivisor = 32
	// VMouseInterval is the period between synthesized mouse moves.
	VMouseInterval = 5 * time.Millisecond
	// DefaultVMouseSpeed is the speed used when none is configured.
	DefaultVMouseSpeed = 8
	maxVMouseSpeed     = 16
)

// VMouseMode selects which stick, if any, drives the virtual mouse.
type VMouseMode int32

const (
	VMouseOff VMouseMode = iota
	VMouseRightStick
	VMouseLeftStick
)

func (m VMouseMode) String() string {
	switch m {
	case VMouseRightStick:
		return "right-stick"
	case VMouseLeftStick:
		return "left-stick"
	default:
		return "off"
	}
}

// Curve maps one stick axis to a per-tick pointer delta.
//
// Deflection below VMouseThreshold yields 0. Above it the magnitude is the square
// root of the excess deflection less speed (clamped to [0,16]), floored at 0 and
// divided by VMouseDivisor. The sign follows the input.
func Curve(axis int16, speed int) int16 {
	v := int(axis)
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs < VMouseThreshold {
		return 0
	}
	speed = min(max(speed, 0), maxVMouseSpeed)
	mag := int(max(0, math.Sqrt(float64(abs-VMouseThreshold))-float64(speed)) / VMouseDivisor)
	if v < 0 {
		return int16(-mag)
	}
	return int16(mag)
}

// Vector is the current virtual mouse velocity in pointer units per tick.
type Vector struct {
	X, Y int16
}

// IsZero reports whether the vector produces no motion.
func (v Vector) IsZero() bool { return v.X == 0 && v.Y == 0 }

// MouseSink receives synthesized relative mouse motion.
type MouseSink interface {
	SendMouseMove(dx, dy int16) error
}

// repeatingTask is the handle of one scheduled mouse emulation loop.
type repeatingTask struct {
	stop chan struct{}
	once sync.Once
}

func (t *repeatingTask) cancel() {
	t.once.Do(func() { close(t.stop) })
}

// VirtualMouse turns stick deflection into periodic relative mouse moves.
//
// At most one repeating task exists at a time. It is scheduled when the vector
// becomes non-zero and cancelled when the vector returns to zero, when the
// mouse is disabled, or when Stop is called.
type VirtualMouse struct {
	mu        sync.Mutex
	vector    Vector
	task      *repeatingTask
	scheduled int

	interval time.Duration
	speed    int
	enabled  func() bool
	sink     MouseSink
	onSent   func()
	onError  func(error)
}

// NewVirtualMouse creates a virtual mouse that sends to sink while enabled reports true.
func NewVirtualMouse(sink MouseSink, speed int, enabled func() bool) *VirtualMouse {
	return &VirtualMouse{
		interval: VMouseInterval,
		speed:    speed,
		enabled:  enabled,
		sink:     sink,
	}
}

// SetStick updates the vector from a stick position as stored in controller
// state (already sign-inverted relative to the device).
func (m *VirtualMouse) SetStick(x, y int16) {
	m.SetVector(Vector{
		X: Curve(negate(x), m.speed),
		Y: Curve(negate(y), m.speed),
	})
}

// SetVector replaces the vector and schedules or cancels the repeating task.
func (m *VirtualMouse) SetVector(v Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vector = v
	if !v.IsZero() {
		if m.task == nil {
			m.schedule()
		}
		return
	}
	if m.task != nil {
		m.task.cancel()
		m.task = nil
	}
}

// Vector returns the current vector.
func (m *VirtualMouse) Vector() Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vector
}

// Active reports whether a repeating task is scheduled.
func (m *VirtualMouse) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.task != nil
}

// Stop zeroes the vector and cancels any scheduled task.
func (m *VirtualMouse) Stop() {
	m.SetVector(Vector{})
}

// schedule starts a new task; m.mu must be held.
func (m *VirtualMouse) schedule() {
	t := &repeatingTask{stop: make(chan struct{})}
	m.task = t
	m.scheduled++
	go m.run(t)
}

func (m *VirtualMouse) run(t *repeatingTask) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if !m.tick(t) {
			return
		}
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
	}
}

// tick emits one move for task t. It returns false, and clears the task
// handle, once the task must stop.
func (m *VirtualMouse) tick(t *repeatingTask) bool {
	m.mu.Lock()
	if m.task != t {
		m.mu.Unlock()
		return false
	}
	v := m.vector
	if v.IsZero() || (m.enabled != nil && !m.enabled()) {
		m.task = nil
		t.cancel()
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if err := m.sink.SendMouseMove(v.X, v.Y); err != nil {
		if m.onError != nil {
			m.onError(err)
		}
		return true
	}
	if m.onSent != nil {
		m.onSent()
	}
	return true
}

// negate flips the sign of v without overflowing on the minimum value.
func negate(v int16) int16 {
	return -max(v, -math.MaxInt16)
}
