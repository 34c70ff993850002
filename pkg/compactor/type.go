package compactor

import "time"

// Aggregation selects how a field is folded into a bucket.
type Aggregation int

const (
	// Max keeps the highest value seen in the bucket. Used for totaliser
	// registers: the last known counter value wins and missed samples are
	// tolerated.
	Max Aggregation = iota
	// Mean averages all values in the bucket. Used for instantaneous
	// readings (power, voltage, state of charge).
	Mean
	// Sum adds all values in the bucket. Used for per-period energy deltas.
	Sum
)

// Edge selects which boundary of the interval labels the bucket.
type Edge int

const (
	// LabelRight stamps the bucket with the closing boundary of its window.
	LabelRight Edge = iota
	// LabelLeft stamps the bucket with the opening boundary of its window.
	LabelLeft
)

// Policy describes how one data source is compacted. Each source is a small
// declarative record; the compaction algorithm itself is shared.
type Policy struct {
	// Interval is the bucket width, e.g. 15 minutes.
	Interval time.Duration
	// Label picks the boundary the bucket is stamped with. Window membership
	// is always closed on the left: a boundary-exact sample opens a new
	// window, so the label choice changes which bucket it ends up in.
	Label Edge
	// Shift is subtracted from every sample timestamp before bucketing.
	// Sources that stamp a period with the start of the next one use this to
	// pull boundary samples back into the period they describe.
	Shift time.Duration
	// Fields maps field names to their aggregation. Fields absent from the
	// map are dropped during compaction.
	Fields map[string]Aggregation
	// IntFields are truncated to whole numbers after aggregation (power
	// means and similar).
	IntFields []string
	// Defaults supplies a value for fields that never appeared in a bucket.
	Defaults map[string]float64
}
