// Package clock abstracts time so the poll loop and refresh debounce can be
// driven manually in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the bridge schedules with.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker delivers ticks every d until stopped.
	NewTicker(d time.Duration) Ticker
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call. It reports whether the timer was pending.
	Stop() bool

	// Reset reschedules the call d from now. It reports whether the timer
	// was pending.
	Reset(d time.Duration) bool
}

// Ticker delivers periodic ticks on C.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock uses the time package.
type RealClock struct{}

// NewRealClock creates a RealClock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }

func (r *realTicker) Stop() { r.t.Stop() }

// MockClock only moves when Advance or Set is called. Expired timers run
// synchronously inside Advance.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
	tickers []*mockTicker
}

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	f        func()
	pending  bool
	listed   bool
}

type mockTicker struct {
	clock  *MockClock
	period time.Duration
	next   time.Time
	ch     chan time.Time
	done   bool
}

// NewMockClock creates a MockClock starting at start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{clock: c, deadline: c.current.Add(d), f: f, pending: true, listed: true}
	c.timers = append(c.timers, t)
	return t
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTicker{clock: c, period: d, next: c.current.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// PendingTimers returns how many AfterFunc calls have not yet run.
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if t.pending {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, delivers due ticks and runs due timers.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	for _, tk := range c.tickers {
		if tk.done || tk.next.After(now) {
			continue
		}
		// Like time.Ticker, slow readers drop ticks rather than queueing them.
		select {
		case tk.ch <- now:
		default:
		}
		for !tk.next.After(now) {
			tk.next = tk.next.Add(tk.period)
		}
	}

	var due []func()
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case !t.pending:
			t.listed = false
		case !t.deadline.After(now):
			t.pending = false
			t.listed = false
			due = append(due, t.f)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// Set jumps to t, firing anything due when t is in the future.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	delta := t.Sub(c.current)
	if delta <= 0 {
		c.current = t
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Advance(delta)
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.pending
	t.pending = false
	return was
}

func (t *mockTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.pending
	t.deadline = t.clock.current.Add(d)
	t.pending = true
	if !t.listed {
		t.listed = true
		t.clock.timers = append(t.clock.timers, t)
	}
	return was
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.done = true
}
