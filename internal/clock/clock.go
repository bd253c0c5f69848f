// Package clock wraps time functions so that "now" can be fixed in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface that wraps time functions to make them testable
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Real implements Clock with the system time in UTC
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

func (Real) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Mock implements Clock for testing
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock returns a clock frozen at t
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *Mock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Set moves the clock to t
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
