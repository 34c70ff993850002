// Package sources describes each telemetry source as a small declarative
// record: its table, its field order, its polling cadence and its
// compaction policy. The daemons and the shared compactor are parameterized
// by these records instead of carrying per-source copies of the logic.
package sources

import (
	"time"

	"github.com/mbruggen/homeflux/pkg/compactor"
)

// Config is the declarative record for one data source.
type Config struct {
	// Table is the source's table in the meter database.
	Table string
	// Columns lists the metric fields in insert order.
	Columns []string
	// ReportInterval is how often buffered samples are flushed.
	ReportInterval time.Duration
	// SamplesPerCycle divides the report interval into the sample cadence.
	SamplesPerCycle int
	// Policy drives the shared compactor for this source.
	Policy compactor.Policy
}

// SampleInterval is the derived device-read cadence.
func (c Config) SampleInterval() time.Duration {
	return c.ReportInterval / time.Duration(c.SamplesPerCycle)
}

// Mains is the smart-meter source: 10-second telegrams compacted into
// right-labelled 15-minute buckets. Counter registers keep their maximum,
// instantaneous power is averaged and truncated to whole watts.
func Mains() Config {
	return Config{
		Table:           "mains",
		Columns:         []string{"T1in", "T2in", "powerin", "T1out", "T2out", "powerout", "tarif", "swits"},
		ReportInterval:  600 * time.Second,
		SamplesPerCycle: 58,
		Policy: compactor.Policy{
			Interval: 15 * time.Minute,
			Label:    compactor.LabelRight,
			Fields: map[string]compactor.Aggregation{
				"T1in":     compactor.Max,
				"T2in":     compactor.Max,
				"T1out":    compactor.Max,
				"T2out":    compactor.Max,
				"powerin":  compactor.Mean,
				"powerout": compactor.Mean,
				"tarif":    compactor.Max,
				"swits":    compactor.Max,
			},
			IntFields: []string{"powerin", "powerout"},
			Defaults:  map[string]float64{"tarif": 1},
		},
	}
}

// Production is the solar source. The vendor API already returns
// quarter-hour energy figures, so the daemon inserts without compaction;
// the policy is used only when falling back to the local inverter readout.
func Production() Config {
	return Config{
		Table:           "production",
		Columns:         []string{"site_id", "energy"},
		ReportInterval:  899 * time.Second,
		SamplesPerCycle: 1,
		Policy: compactor.Policy{
			Interval: 15 * time.Minute,
			Label:    compactor.LabelRight,
			Fields: map[string]compactor.Aggregation{
				"energy": compactor.Mean,
			},
			IntFields: []string{"energy"},
		},
	}
}

// Charger is the EV-charger source: the hub reports per-hour joule
// registers stamped with the start of the hour.
func Charger() Config {
	return Config{
		Table:           "charger",
		Columns:         []string{"site_id", "exp", "gen", "gep", "imp", "h1b", "h1d"},
		ReportInterval:  900 * time.Second,
		SamplesPerCycle: 1,
		Policy: compactor.Policy{
			Interval: time.Hour,
			Label:    compactor.LabelLeft,
			Fields: map[string]compactor.Aggregation{
				"exp": compactor.Sum,
				"gen": compactor.Sum,
				"gep": compactor.Sum,
				"imp": compactor.Sum,
				"h1b": compactor.Sum,
				"h1d": compactor.Sum,
			},
			IntFields: []string{"exp", "gen", "gep", "imp", "h1b", "h1d"},
		},
	}
}

// Battery is the home-battery source. Samples are stamped with the start of
// the next period by the device, so five seconds are stolen before
// bucketing to pull them back into the period they describe.
func Battery() Config {
	return Config{
		Table:           "storage",
		Columns:         []string{"site_id", "soc", "soh"},
		ReportInterval:  900 * time.Second,
		SamplesPerCycle: 15,
		Policy: compactor.Policy{
			Interval: 15 * time.Minute,
			Label:    compactor.LabelLeft,
			Shift:    5 * time.Second,
			Fields: map[string]compactor.Aggregation{
				"soc": compactor.Mean,
				"soh": compactor.Mean,
			},
		},
	}
}

// Prices is the day-ahead energy price source; one row per hour, fetched in
// bulk and inserted without compaction.
func Prices() Config {
	return Config{
		Table:           "prices",
		Columns:         []string{"price"},
		ReportInterval:  time.Hour,
		SamplesPerCycle: 1,
	}
}
