// Package time provides a clock that may be replaced in tests.
package time

import (
	"sync"
	"time"
)

// IClock encompasses reading the current time.
type IClock interface {
	Now() time.Time
}

// Clock reads the wall clock.
type Clock struct{}

// Now wraps time.Now.
func (Clock) Now() time.Time {
	return time.Now()
}

// NewMock initializes a new Mock instance stopped at now.
func NewMock(now time.Time) *Mock {
	return &Mock{mutex: new(sync.Mutex), now: now}
}

// Mock is a clock that only moves when told to.
type Mock struct {
	mutex *sync.Mutex
	now   time.Time
}

// Now retrieves the mocked time.
func (m *Mock) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.now
}

// Advance moves the mocked time forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = m.now.Add(d)
}
