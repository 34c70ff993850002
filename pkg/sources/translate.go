package sources

import (
	"fmt"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

// The daemons may run in any locale; vendor-supplied UTC timestamps are
// always converted to this fixed timezone, never to the system zone.
var reportLocation = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// ReportLocation returns the fixed timezone used for vendor timestamps.
func ReportLocation() *time.Location {
	return reportLocation
}

// TranslateProduction converts one energy-details value from the production
// API. The API stamps values in UTC; the sample is restamped in the report
// timezone. A missing value (the API pads its window with empty slots)
// defaults to zero energy.
func TranslateProduction(date string, energy *float64, siteID float64) (types.Sample, error) {
	t, err := time.ParseInLocation(types.DTFormat, date, time.UTC)
	if err != nil {
		return types.Sample{}, fmt.Errorf("unparseable production stamp %q: %w", date, err)
	}
	e := 0.0
	if energy != nil {
		e = *energy
	}
	return types.NewSample(t.In(reportLocation), map[string]float64{
		"site_id": siteID,
		"energy":  float64(int64(e)),
	}), nil
}

// ChargerHour is one per-hour block from the charger hub. Registers are in
// joules; the stamp is UTC, composed from broken-down fields.
type ChargerHour struct {
	Year  int     `json:"yr"`
	Month int     `json:"mon"`
	Day   int     `json:"dom"`
	Hour  int     `json:"hr"`
	Imp   float64 `json:"imp"`
	Exp   float64 `json:"exp"`
	Gep   float64 `json:"gep"`
	Gen   float64 `json:"gen"`
	H1b   float64 `json:"h1b"`
	H1d   float64 `json:"h1d"`
}

// TranslateCharger converts one hub block to a left-stamped hourly sample,
// scaling joules down to watt-hours. Fields the hub omitted stay at their
// template default of zero.
func TranslateCharger(h ChargerHour, siteID float64) types.Sample {
	t := time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
	return types.NewSample(t.In(reportLocation), map[string]float64{
		"site_id": siteID,
		"exp":     joulesToWh(h.Exp),
		"gen":     joulesToWh(h.Gen),
		"gep":     joulesToWh(h.Gep),
		"imp":     joulesToWh(h.Imp),
		"h1b":     joulesToWh(h.H1b),
		"h1d":     joulesToWh(h.H1d),
	})
}

// TranslateBattery stamps a state-of-charge reading at translation time
// using the local wall clock; the device supplies no usable timestamp.
func TranslateBattery(soc, soh, siteID float64, now time.Time) types.Sample {
	return types.NewSample(now, map[string]float64{
		"site_id": siteID,
		"soc":     soc,
		"soh":     soh,
	})
}

// TranslatePrice converts one day-ahead price row. The feed stamps rows in
// local time already.
func TranslatePrice(date string, price float64) (types.Sample, error) {
	t, err := time.ParseInLocation(types.DTFormat, date, reportLocation)
	if err != nil {
		// some feeds omit the seconds
		t, err = time.ParseInLocation("2006-01-02 15:04", date, reportLocation)
	}
	if err != nil {
		return types.Sample{}, fmt.Errorf("unparseable price stamp %q: %w", date, err)
	}
	return types.NewSample(t, map[string]float64{"price": price}), nil
}

func joulesToWh(j float64) float64 {
	return float64(int64(j / 3600))
}
