package session

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call if it has not run yet.
	Stop() bool
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler uses the wall clock.
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler runs timers only when told to, in the order they were
// scheduled. It lets a sequence be stepped through deterministically.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s    *ManualScheduler
	f    func()
	done bool
}

// AfterFunc records f. The delay is ignored.
func (m *ManualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{s: m, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Pending is the number of timers that have neither fired nor been stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Fire runs the oldest pending timer and reports whether there was one.
func (m *ManualScheduler) Fire() bool {
	m.mu.Lock()
	var next *manualTimer
	for _, t := range m.timers {
		if !t.done {
			next = t
			break
		}
	}
	if next == nil {
		m.mu.Unlock()
		return false
	}
	next.done = true
	m.mu.Unlock()

	next.f()
	return true
}

// Drain fires timers until none remain or limit firings have happened.
func (m *ManualScheduler) Drain(limit int) int {
	n := 0
	for n < limit && m.Fire() {
		n++
	}
	return n
}
