package input_test

import (
	"sync"

	"github.com/Alia5/viistream/device/xbox360"
)

type controllerEvent struct {
	Slot  uint8
	Mask  uint16
	State xbox360.InputState
}

type recordingSink struct {
	mu         sync.Mutex
	controller []controllerEvent
	moves      [][2]int16
	err        error
}

func (r *recordingSink) SendMultiController(slot uint8, mask uint16, state xbox360.InputState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.controller = append(r.controller, controllerEvent{Slot: slot, Mask: mask, State: state})
	return nil
}

func (r *recordingSink) SendMouseMove(dx, dy int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.moves = append(r.moves, [2]int16{dx, dy})
	return nil
}

func (r *recordingSink) controllerEvents() []controllerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]controllerEvent(nil), r.controller...)
}

func (r *recordingSink) moveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.moves)
}

func (r *recordingSink) lastMove() [2]int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.moves) == 0 {
		return [2]int16{}
	}
	return r.moves[len(r.moves)-1]
}
