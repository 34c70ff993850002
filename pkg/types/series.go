package types

// Series is an index-aligned pair of bucket labels and numeric aggregates.
// Labels and Values are always the same length.
type Series struct {
	Labels []string
	Values []float64
}

// Len returns the number of buckets in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// BalanceResult holds the five aligned series produced by the balance
// calculation for one reporting period.
type BalanceResult struct {
	ImportLo []float64
	ImportHi []float64
	ExportLo []float64
	ExportHi []float64
	OwnUsage []float64
}
