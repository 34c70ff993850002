package compactor

import (
	"math"
	"sort"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

// Compact folds a buffer of raw samples into fixed-interval buckets.
//
// It returns the finalized buckets and the unconsumed remainder. A bucket is
// finalized only once its closing boundary lies at or before the newest
// sample in the buffer; everything after the last finalized boundary is
// handed back untouched so it can be carried into the next cycle. No sample
// is ever both finalized and re-finalized.
//
// The remainder keeps every sample stamped at or after the closing boundary
// of the last finalized bucket, so a late out-of-order arrival is silently
// absorbed into whichever bucket its timestamp resamples into on the next
// cycle. There is no reordering guard.
func Compact(buf []types.Sample, p Policy) (finalized, remainder []types.Sample) {
	if len(buf) == 0 {
		return nil, nil
	}
	iv := int64(p.Interval / time.Second)
	if iv <= 0 {
		return nil, append(remainder, buf...)
	}
	shift := int64(p.Shift / time.Second)

	// Group samples by bucket label. Window membership is [start, start+iv).
	groups := make(map[int64][]types.Sample)
	var maxObserved int64
	for _, s := range buf {
		epoch := s.SampleEpoch - shift
		start := epoch - mod(epoch, iv)
		label := start
		if p.Label == LabelRight {
			label = start + iv
		}
		groups[label] = append(groups[label], s)
		if s.SampleEpoch > maxObserved {
			maxObserved = s.SampleEpoch
		}
	}

	labels := make([]int64, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var maxClosing int64
	for _, label := range labels {
		closing := label
		if p.Label == LabelLeft {
			closing = label + iv
		}
		if closing > maxObserved-shift {
			continue
		}
		finalized = append(finalized, aggregate(groups[label], label, p))
		if closing > maxClosing {
			maxClosing = closing
		}
	}

	if len(finalized) == 0 {
		return nil, append(remainder, buf...)
	}
	// window membership is closed-left, so a sample stamped exactly on the
	// last closing boundary opened the next window and must carry forward
	for _, s := range buf {
		if s.SampleEpoch-shift >= maxClosing {
			remainder = append(remainder, s)
		}
	}
	return finalized, remainder
}

// aggregate folds one bucket's samples according to the field policy and
// restamps the result from the bucket label.
func aggregate(samples []types.Sample, label int64, p Policy) types.Sample {
	fields := make(map[string]float64, len(p.Fields))
	for name, agg := range p.Fields {
		var acc float64
		n := 0
		for _, s := range samples {
			v, ok := s.Fields[name]
			if !ok {
				continue
			}
			switch agg {
			case Max:
				if n == 0 || v > acc {
					acc = v
				}
			case Mean, Sum:
				acc += v
			}
			n++
		}
		if n == 0 {
			fields[name] = p.Defaults[name]
			continue
		}
		if agg == Mean {
			acc /= float64(n)
		}
		fields[name] = acc
	}
	for _, name := range p.IntFields {
		if v, ok := fields[name]; ok {
			fields[name] = math.Trunc(v)
		}
	}

	out := types.Sample{Fields: fields}
	out.SetTime(time.Unix(label, 0))
	return out
}

// mod is a floor modulo for epochs before 1970.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
