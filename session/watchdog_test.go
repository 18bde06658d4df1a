package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchdogFires(t *testing.T) {
	var fired atomic.Int32
	w := NewWatchdog(20*time.Millisecond, func() { fired.Add(1) })
	w.Start()
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWatchdogFeedPostpones(t *testing.T) {
	var fired atomic.Int32
	w := NewWatchdog(80*time.Millisecond, func() { fired.Add(1) })
	w.Start()
	defer w.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Feed()
	}
	assert.Zero(t, fired.Load())
}

func TestWatchdogStop(t *testing.T) {
	var fired atomic.Int32
	w := NewWatchdog(10*time.Millisecond, func() { fired.Add(1) })
	w.Start()
	w.Stop()
	w.Start()
	w.Feed()
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestWatchdogDisabled(t *testing.T) {
	w := NewWatchdog(0, func() { t.Fatal("disabled watchdog fired") })
	assert.Nil(t, w)
	w.Start()
	w.Feed()
	w.Stop()
}
