// trend_report prints the balance and usage trends from the meter database.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/mbruggen/homeflux/pkg/meterdb"
	"github.com/mbruggen/homeflux/pkg/report"
)

func main() {
	hours := flag.Int("hours", 0, "report the last N hours")
	days := flag.Int("days", 0, "report the last N days")
	months := flag.Int("months", 0, "report the last N months")
	years := flag.Int("years", 0, "report the last N years")
	year := flag.Int("year", 0, "pin the report to one calendar year")
	mode := flag.Int("balance", 2, "netting mode: 1 single meter, 2 per register")
	today := flag.Bool("today", false, "include the running day")
	flag.Parse()

	opts := report.Options{
		Timeframe:    "hour",
		Period:       48,
		Year:         *year,
		BalanceMode:  *mode,
		IncludeToday: *today,
	}
	switch {
	case *years > 0:
		opts.Timeframe, opts.Period = "year", *years
	case *months > 0:
		opts.Timeframe, opts.Period = "month", *months
	case *days > 0:
		opts.Timeframe, opts.Period = "day", *days
	case *hours > 0:
		opts.Period = *hours
	}
	if *year != 0 && opts.Timeframe == "hour" {
		opts.Timeframe, opts.Period = "month", 12
	}

	if err := report.Trend(meterdb.Open(), opts, os.Stdout); err != nil {
		log.Fatalf("Report failed: %v", err)
	}
}
