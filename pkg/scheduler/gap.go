package scheduler

import "time"

// GapTracker implements hole detection for API-polling daemons. After each
// insert the daemon re-reads the database high-water mark; if it did not
// advance there is a hole in the data, and the next query start jumps
// forward an increasing number of days so the daemon can vault over
// multi-day provider outages without polling every missed day.
type GapTracker struct {
	LookaheadDays int
}

// NewGapTracker starts with a one-day lookahead.
func NewGapTracker() *GapTracker {
	return &GapTracker{LookaheadDays: 1}
}

// Next returns where the next query window should start, given the
// high-water mark before and after the last insert. It reports whether a
// hole was found. The probe never jumps past now, and a successful advance
// resets the backoff.
func (g *GapTracker) Next(prev, latest, now time.Time) (time.Time, bool) {
	if latest.After(prev) {
		g.LookaheadDays = 1
		return latest, false
	}
	probe := latest.AddDate(0, 0, g.LookaheadDays)
	if probe.After(now) {
		probe = now
	}
	g.LookaheadDays++
	return probe, true
}
