// Package scheduler runs the single-threaded tick-based poll loop shared by
// all collector daemons: one process, one loop, blocking I/O within a tick.
// The loop keeps two clocks, one for sampling the device and one for
// flushing buffered samples to the database, both drift-corrected so the
// cadence free-runs on a fixed phase instead of drifting with processing
// time.
package scheduler

import (
	"log"
	"time"
)

// Loop is a poll loop parameterized by the daemon's unit of work.
type Loop struct {
	// SampleInterval is the cadence of Sample calls, typically
	// report_interval / samples_per_cycle.
	SampleInterval time.Duration
	// ReportInterval is the cadence of Report calls.
	ReportInterval time.Duration

	// Sample performs one device read. A failure is transient: it degrades
	// the status signal and is retried on the next tick.
	Sample func() error
	// Report flushes buffered samples to the database. A failure here is
	// fatal and terminates the loop, favouring crash-and-restart over
	// continuing with an inconsistent buffer. Optional.
	Report func() error
	// Status receives "green", "orange" or "red" as the loop's health
	// changes. Optional; usually wired to the status-icon collaborator.
	Status func(colour string)

	Killer *Killer

	// Tick is the loop resolution. Zero means one second.
	Tick time.Duration
}

// NextAligned returns the next multiple of interval after now, so that work
// happens on a fixed phase regardless of how long the previous iteration
// took.
func NextAligned(now time.Time, interval time.Duration) time.Time {
	rem := interval - time.Duration(now.UnixNano())%interval
	return now.Add(rem)
}

// Run executes the loop until the kill flag is raised or Report fails.
func (l *Loop) Run() error {
	tick := l.Tick
	if tick == 0 {
		tick = time.Second
	}

	next := NextAligned(time.Now(), l.SampleInterval)
	rprt := NextAligned(time.Now(), l.ReportInterval)

	for !l.Killer.KillNow() {
		now := time.Now()
		if now.Before(next) {
			time.Sleep(tick)
			continue
		}

		if err := l.Sample(); err != nil {
			l.status("orange")
			log.Printf("sampling failed: %v", err)
		} else {
			l.status("green")
		}

		if l.Report != nil && time.Now().After(rprt) {
			if err := l.Report(); err != nil {
				l.status("red")
				return err
			}
			rprt = NextAligned(time.Now(), l.ReportInterval)
		}

		next = NextAligned(time.Now(), l.SampleInterval)
	}
	return nil
}

func (l *Loop) status(colour string) {
	if l.Status != nil {
		l.Status(colour)
	}
}
