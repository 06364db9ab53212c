// Package progress defines the event stream emitted by store jobs and the
// hub that fans it out to observability sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the lifecycle milestone an Event represents.
type Stage string

// Supported stages. RUN_* events bracket one store run; PAGE_DONE and WRITE
// fire once per pagination iteration.
const (
	StageRunStart Stage = "RUN_START"
	StagePageDone Stage = "PAGE_DONE"
	StageWrite    Stage = "WRITE"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
)

// Event is one progress milestone. Events are observability data only: the
// hub may drop them under backpressure, so nothing durable derives from them.
type Event struct {
	// RunID identifies the scrape run the event belongs to.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone kind.
	Stage Stage
	// Store labels the storefront.
	Store string
	// Category optionally narrows the event to one category.
	Category string
	// Page is the pagination index for PAGE_DONE events.
	Page int
	// Products carries the record count for WRITE and RUN_DONE events.
	Products int
	// Class labels the outcome: "ok" or an error class for PAGE_DONE and
	// RUN_ERROR events.
	Class string
	// Dur captures latency for page fetches and whole runs.
	Dur time.Duration
	// Note attaches low-volume context such as error text.
	Note string
}

// Validate performs coarse validation so malformed events never reach sinks.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.Store == "" {
		return errors.New("store is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError, StageWrite:
	case StagePageDone:
		if e.Page < 1 {
			return errors.New("page done requires a page index")
		}
		if e.Class == "" {
			return errors.New("page done requires an outcome class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Products < 0 {
		return errors.New("product count must be >= 0")
	}
	return nil
}
