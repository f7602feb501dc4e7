// Package clockx abstracts time so components can replace real time in tests.
package clockx

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System is the production clock implementation backed by time.Now.
type System struct{}

// New returns a System clock that reads the current system time.
func New() *System {
	return &System{}
}

// Now returns the current system time.
func (*System) Now() time.Time {
	return time.Now()
}
