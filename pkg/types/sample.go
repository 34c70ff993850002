package types

import "time"

// DTFormat is the wall-clock format used for sample_time throughout the
// database and all vendor translations.
const DTFormat = "2006-01-02 15:04:05"

// Sample is one canonical reading from any data source.
// Counter fields are stored in integer milli-units (Wh, dm3), instantaneous
// fields in base units (W, V). SampleEpoch is always recomputed from
// SampleTime, never taken from upstream.
type Sample struct {
	SampleTime  string             `json:"sample_time"`
	SampleEpoch int64              `json:"sample_epoch"`
	Fields      map[string]float64 `json:"fields"`
}

// NewSample stamps a sample at the given moment with a copy of fields.
func NewSample(t time.Time, fields map[string]float64) Sample {
	cp := make(map[string]float64, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	s := Sample{Fields: cp}
	s.SetTime(t)
	return s
}

// SetTime stamps SampleTime and derives SampleEpoch from it.
// The epoch is taken from the truncated text form, not from t directly, so
// that sample_epoch == parse(sample_time) holds for every stored row.
func (s *Sample) SetTime(t time.Time) {
	s.SampleTime = t.Format(DTFormat)
	parsed, err := time.ParseInLocation(DTFormat, s.SampleTime, t.Location())
	if err != nil {
		parsed = t.Truncate(time.Second)
	}
	s.SampleEpoch = parsed.Unix()
}

// Field returns the named field or def when absent.
func (s Sample) Field(name string, def float64) float64 {
	if v, ok := s.Fields[name]; ok {
		return v
	}
	return def
}
