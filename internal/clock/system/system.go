// Package system is the wall-clock ingest.Clock used outside of tests.
package system

import "time"

// Clock reads the system time.
type Clock struct{}

// New returns the wall clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, the zone every run and scrape
// timestamp is stored in.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
