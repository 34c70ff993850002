package historic

import (
	"database/sql"
	"time"
)

// step of the fine-grained timeline the raw samples are interpolated onto.
const timelineStep = 15 * 60

// placeholderYear anchors the synthetic series returned for empty tables.
const placeholderYear = 2019

// QueryConfig describes one historic query against a source table.
type QueryConfig struct {
	DB    *sql.DB
	Table string

	// Timeframe is the lookback unit: "hour", "day", "month" or "year".
	Timeframe string
	// Period is the number of timeframe units to look back, and the maximum
	// number of buckets returned.
	Period int
	// Grouping is the Go time layout that names a bucket, e.g. "2006-01"
	// for monthly buckets.
	Grouping string
	// Year pins the query to a calendar year instead of a lookback from now.
	// Zero means not pinned.
	Year int
	// Divisor scales the grouped values, e.g. 1000 to turn milli-units into
	// base units. Zero means 1000.
	Divisor float64
}

func (qc QueryConfig) divisor() float64 {
	if qc.Divisor == 0 {
		return 1000
	}
	return qc.Divisor
}

// timeframeSeconds returns the worst-case length of one timeframe unit.
// Months and years are deliberately oversized (31 and 366 days) so the
// timeline always covers the requested period, including a leap year in the
// report window.
func (qc QueryConfig) timeframeSeconds() int64 {
	switch qc.Timeframe {
	case "day":
		return 3600 * 24
	case "month":
		return 3600 * 24 * 31
	case "year":
		return 3600 * 24 * 366
	default:
		return 3600
	}
}

// timeline builds the regular epoch grid the raw data is interpolated onto.
func (qc QueryConfig) timeline(now time.Time) []int64 {
	final := now.Unix()
	if qc.Year != 0 {
		final = time.Date(qc.Year+1, 1, 1, 0, 0, 0, 0, now.Location()).Unix()
	}
	start := (final - qc.timeframeSeconds()*int64(qc.Period)) / timelineStep * timelineStep
	grid := make([]int64, 0, (final-start)/timelineStep)
	for e := start; e < final; e += timelineStep {
		grid = append(grid, e)
	}
	return grid
}
