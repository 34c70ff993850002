// Package report renders the textual trend report: per-bucket import,
// export, production and own usage over a chosen window, with the grid
// registers netted by the balance arithmetic.
package report

import (
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mbruggen/homeflux/pkg/balance"
	"github.com/mbruggen/homeflux/pkg/historic"
	"github.com/mbruggen/homeflux/pkg/types"
)

// Options selects the report window and the netting mode.
type Options struct {
	// Timeframe is the bucket unit: "hour", "day", "month" or "year".
	Timeframe string
	// Period is the number of buckets to report.
	Period int
	// Year pins the report to one calendar year. Zero means a lookback
	// from now.
	Year int
	// BalanceMode is 1 for a single netted meter, 2 for per-register
	// netting.
	BalanceMode int
	// IncludeToday keeps the running bucket in the report.
	IncludeToday bool
}

// grouping maps a timeframe to the layout that names its buckets.
func (o Options) grouping() string {
	switch o.Timeframe {
	case "day":
		return "2006-01-02"
	case "month":
		return "2006-01"
	case "year":
		return "2006"
	default:
		return "02 15h"
	}
}

// Trend writes the trend report for the given window to w. Mains registers
// are differenced per bucket (they are cumulative counters), production is
// summed, and the balance pass nets import against export and augments own
// usage with the production that never crossed the meter.
func Trend(db *sql.DB, opts Options, w io.Writer) error {
	mains := historic.QueryConfig{
		DB:        db,
		Table:     "mains",
		Timeframe: opts.Timeframe,
		Period:    opts.Period,
		Grouping:  opts.grouping(),
		Year:      opts.Year,
	}
	production := mains
	production.Table = "production"

	fromStartOfYear := opts.Timeframe == "month" || opts.Timeframe == "year"

	var importLo, importHi, exportLo, exportHi, produced types.Series
	var err error
	for _, q := range []struct {
		qc  historic.QueryConfig
		col string
		dif bool
		out *types.Series
	}{
		{mains, "T1in", true, &importLo},
		{mains, "T2in", true, &importHi},
		{mains, "T1out", true, &exportLo},
		{mains, "T2out", true, &exportHi},
		{production, "energy", false, &produced},
	} {
		*q.out, err = historic.GetHistoricData(q.qc, q.col, fromStartOfYear, opts.IncludeToday, q.dif)
		if err != nil {
			return err
		}
	}

	res := balance.Balance(
		importLo.Values, importHi.Values,
		exportLo.Values, exportHi.Values,
		produced.Values, opts.BalanceMode)

	labels := importLo.Labels
	if len(produced.Labels) > len(labels) {
		labels = produced.Labels
	}
	offset := len(res.OwnUsage) - len(labels)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tin lo\tin hi\tout lo\tout hi\town\t")
	for i, label := range labels {
		j := offset + i
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			label,
			res.ImportLo[j], res.ImportHi[j],
			res.ExportLo[j], res.ExportHi[j],
			res.OwnUsage[j])
	}
	return tw.Flush()
}
