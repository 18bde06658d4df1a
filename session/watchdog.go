package session

import (
	"sync"
	"time"
)

// Watchdog calls fire when it is not fed within its timeout.
// A nil *Watchdog is disabled; all methods are no-ops on it.
type Watchdog struct {
	timeout time.Duration
	fire    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatchdog returns a stopped watchdog, or nil when timeout is not positive.
func NewWatchdog(timeout time.Duration, fire func()) *Watchdog {
	if timeout <= 0 {
		return nil
	}
	return &Watchdog{timeout: timeout, fire: fire}
}

// Start arms the watchdog. It has no effect after Stop.
func (w *Watchdog) Start() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.timer != nil {
		return
	}
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

// Feed restarts the timeout of an armed watchdog.
func (w *Watchdog) Feed() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.timer == nil {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop disarms the watchdog for good.
func (w *Watchdog) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
