package input

import (
	"sync"

	"github.com/Alia5/viistream/device/xbox360"
)

// MaxControllers is the number of controller slots a session tracks.
const MaxControllers = 4

// Slot is one tracked physical controller and its accumulated state.
type Slot struct {
	Index       uint8
	Device      DeviceID
	Initialized bool
	State       xbox360.InputState

	// set once the quit combo is fully held; cleared when every button is up
	comboArmed bool
}

// Registry maps physical devices to controller slots.
//
// Slots are claimed on first sight and never released while the session lives;
// disconnecting a device does not free its slot. A device first seen after all
// slots are taken aliases slot 0.
type Registry struct {
	mu    sync.Mutex
	slots [MaxControllers]Slot
	mask  uint16
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Resolve returns the slot owned by id, claiming the first free slot if the
// device is new.
func (r *Registry) Resolve(id DeviceID) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		s := &r.slots[i]
		if !s.Initialized {
			s.Device = id
			s.Initialized = true
			r.mask |= 1 << i
			return s
		}
		if s.Device == id {
			return s
		}
	}
	return &r.slots[0]
}

// ActiveMask returns the bitmask of claimed slot indices.
func (r *Registry) ActiveMask() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mask
}

// Count returns the number of claimed slots.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.slots {
		if r.slots[i].Initialized {
			n++
		}
	}
	return n
}

// Reset forgets every device. Only used on a full session reset.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		r.slots[i] = Slot{Index: uint8(i)}
	}
	r.mask = 0
}
