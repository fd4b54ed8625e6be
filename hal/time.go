package hal

import (
	"sync"
	"time"
)

type wallTime struct{}

// WallTime returns the real clock.
func WallTime() Time { return wallTime{} }

func (wallTime) Now() time.Time        { return time.Now() }
func (wallTime) Sleep(d time.Duration) { time.Sleep(d) }

// VirtualTime is a clock that only moves when slept on. Headless runs and
// tests use it to replay button scripts without waiting in real time.
type VirtualTime struct {
	mu  sync.Mutex
	now time.Time

	limit   time.Time
	onLimit func()
}

// NewVirtualTime returns a clock starting at start.
func NewVirtualTime(start time.Time) *VirtualTime {
	return &VirtualTime{now: start}
}

// StopAfter calls fn once the clock has advanced d past its current time.
func (t *VirtualTime) StopAfter(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = t.now.Add(d)
	t.onLimit = fn
}

func (t *VirtualTime) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

func (t *VirtualTime) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.now = t.now.Add(d)
	var fire func()
	if t.onLimit != nil && !t.now.Before(t.limit) {
		fire = t.onLimit
		t.onLimit = nil
	}
	t.mu.Unlock()
	if fire != nil {
		fire()
	}
}
