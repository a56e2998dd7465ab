package proc

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session may sit with nothing to play.
const DefaultIdleTimeout = 10 * time.Minute

// IdleTimer fires onIdle once per arm unless it is reset or stopped first.
type IdleTimer struct {
	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	onIdle func()
}

func NewIdleTimer(onIdle func()) *IdleTimer {
	return &IdleTimer{onIdle: onIdle}
}

// Reset (re)arms the timer for d.
func (t *IdleTimer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()
		if t.onIdle != nil {
			t.onIdle()
		}
	})
}

// Stop disarms the timer. A callback already past its generation check still runs.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Armed reports whether a callback is pending.
func (t *IdleTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
