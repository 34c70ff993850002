// Package historic turns raw per-sample rows from the database into regular,
// report-ready series. Raw samples are not guaranteed evenly spaced, so the
// result set is first interpolated onto a fine fixed-step timeline and then
// regrouped into the buckets the caller asked for.
package historic

import (
	"fmt"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

// GetHistoricData fetches one column over the configured window and returns
// an aligned (values, labels) series.
//
// dif selects differenced mode (last minus first per bucket, for cumulative
// counters); otherwise values are summed per bucket (for per-period
// production figures). Negative bucket results are clipped to zero, which
// protects against counter resets producing spurious negative deltas.
//
// The returned series holds at most Period buckets, truncated from the
// tail. A table with no rows yields a degenerate two-point placeholder
// spanning a synthetic year boundary; callers must tolerate near-empty
// series for brand-new installations.
func GetHistoricData(qc QueryConfig, column string, fromStartOfYear, includeToday, dif bool) (types.Series, error) {
	epochs, data, err := fetch(qc, column, fromStartOfYear, includeToday)
	if err != nil {
		return types.Series{}, err
	}

	timeline := qc.timeline(time.Now())
	interpolated := interpolate(timeline, epochs, data)
	labels, grouped := groupData(timeline, interpolated, qc.Grouping, dif)

	div := qc.divisor()
	for i, v := range grouped {
		if v < 0 {
			v = 0
		}
		grouped[i] = v / div
	}

	if len(grouped) > qc.Period {
		grouped = grouped[len(grouped)-qc.Period:]
		labels = labels[len(labels)-qc.Period:]
	}
	return types.Series{Labels: labels, Values: grouped}, nil
}

// fetch runs the windowed query and falls back to a two-point placeholder
// when the table has nothing, so downstream interpolation never sees an
// empty array.
func fetch(qc QueryConfig, column string, fromStartOfYear, includeToday bool) ([]int64, []float64, error) {
	interval := fmt.Sprintf("datetime('now', 'localtime', '-%d %s')", qc.Period+1, qc.Timeframe)
	if fromStartOfYear {
		interval = fmt.Sprintf("datetime(%s, 'start of year')", interval)
	}
	notToday := ""
	if !includeToday {
		notToday = "AND (sample_time <= datetime('now', 'localtime', '-1 day')) "
	}
	ytf := placeholderYear
	if qc.Year != 0 {
		ytf = qc.Year
		interval = fmt.Sprintf("datetime('%d-01-01 00:00')", ytf)
		notToday = fmt.Sprintf("AND (sample_time <= datetime('%d-01-01 00:00')) ", ytf+1)
	}

	query := fmt.Sprintf(
		"SELECT sample_epoch, %s FROM %s WHERE (sample_time >= %s) %sORDER BY sample_epoch ASC",
		column, qc.Table, interval, notToday)

	rows, err := qc.DB.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("historic query on %s failed: %w", qc.Table, err)
	}
	defer rows.Close()

	var epochs []int64
	var data []float64
	for rows.Next() {
		var e int64
		var v float64
		if err := rows.Scan(&e, &v); err != nil {
			return nil, nil, err
		}
		epochs = append(epochs, e)
		data = append(data, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(epochs) == 0 {
		epochs = []int64{
			time.Date(ytf, 1, 1, 0, 0, 0, 0, time.Local).Unix(),
			time.Date(ytf+1, 1, 1, 0, 0, 0, 0, time.Local).Unix(),
		}
		data = []float64{0, 0}
	}
	return epochs, data, nil
}

// interpolate maps the raw (epoch, value) points onto the regular timeline
// with linear interpolation. Points outside the raw range clamp to the
// nearest endpoint.
func interpolate(timeline, epochs []int64, data []float64) []float64 {
	out := make([]float64, len(timeline))
	j := 1
	for i, x := range timeline {
		switch {
		case x <= epochs[0]:
			out[i] = data[0]
		case x >= epochs[len(epochs)-1]:
			out[i] = data[len(data)-1]
		default:
			// both the timeline and the epochs are ascending, so the
			// enclosing segment only ever moves forward
			for epochs[j] < x {
				j++
			}
			x0, x1 := epochs[j-1], epochs[j]
			y0, y1 := data[j-1], data[j]
			out[i] = y0 + (y1-y0)*float64(x-x0)/float64(x1-x0)
		}
	}
	return out
}

// groupData folds the fine timeline into textual buckets named by the given
// layout. The timeline is monotonic, so equal labels form consecutive runs.
func groupData(timeline []int64, values []float64, layout string, dif bool) ([]string, []float64) {
	var labels []string
	var grouped []float64

	i := 0
	for i < len(timeline) {
		label := time.Unix(timeline[i], 0).Format(layout)
		j := i
		for j+1 < len(timeline) && time.Unix(timeline[j+1], 0).Format(layout) == label {
			j++
		}
		var v float64
		if dif {
			v = values[j] - values[i]
		} else {
			for k := i; k <= j; k++ {
				v += values[k]
			}
		}
		labels = append(labels, label)
		grouped = append(grouped, v)
		i = j + 1
	}
	return labels, grouped
}
