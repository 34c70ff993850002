package sources

import (
	"testing"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestTranslateProduction_RestampsVendorUTC(t *testing.T) {
	energy := 250.7
	smp, err := TranslateProduction("2026-06-15 12:00:00", &energy, 42)
	require.NoError(t, err)

	utc, _ := time.ParseInLocation(types.DTFormat, "2026-06-15 12:00:00", time.UTC)
	// same instant, rendered in the report timezone
	require.Equal(t, utc.Unix(), smp.SampleEpoch)
	require.Equal(t, utc.In(ReportLocation()).Format(types.DTFormat), smp.SampleTime)
	require.Equal(t, float64(250), smp.Field("energy", -1))
	require.Equal(t, float64(42), smp.Field("site_id", -1))
}

func TestTranslateProduction_MissingValueIsZero(t *testing.T) {
	smp, err := TranslateProduction("2026-06-15 03:15:00", nil, 42)
	require.NoError(t, err)
	require.Equal(t, float64(0), smp.Field("energy", -1))
}

func TestTranslateProduction_BadStamp(t *testing.T) {
	_, err := TranslateProduction("yesterday-ish", nil, 42)
	require.Error(t, err)
}

func TestTranslateCharger_JoulesToWattHours(t *testing.T) {
	smp := TranslateCharger(ChargerHour{
		Year: 2026, Month: 6, Day: 15, Hour: 13,
		Imp: 3600000, // 1 kWh
		Gep: 7200,
	}, 0)

	utc := time.Date(2026, 6, 15, 13, 0, 0, 0, time.UTC)
	require.Equal(t, utc.Unix(), smp.SampleEpoch)
	require.Equal(t, float64(1000), smp.Field("imp", -1))
	require.Equal(t, float64(2), smp.Field("gep", -1))
	require.Equal(t, float64(0), smp.Field("exp", -1))
}

func TestTranslateBattery_StampsAtTranslationTime(t *testing.T) {
	now, _ := time.ParseInLocation(types.DTFormat, "2026-03-14 10:00:07", time.Local)
	smp := TranslateBattery(81.5, 99.0, 3, now)

	require.Equal(t, "2026-03-14 10:00:07", smp.SampleTime)
	require.Equal(t, float64(81.5), smp.Field("soc", -1))
	require.Equal(t, float64(99.0), smp.Field("soh", -1))
}

func TestTranslatePrice_AcceptsBothStampFormats(t *testing.T) {
	full, err := TranslatePrice("2026-03-14 13:00:00", 0.25)
	require.NoError(t, err)
	short, err := TranslatePrice("2026-03-14 13:00", 0.25)
	require.NoError(t, err)

	require.Equal(t, full.SampleEpoch, short.SampleEpoch)
	require.Equal(t, float64(0.25), full.Field("price", -1))

	_, err = TranslatePrice("13:00 o'clock", 0.25)
	require.Error(t, err)
}

func TestSourceConfig_SampleInterval(t *testing.T) {
	require.Equal(t, 600*time.Second/58, Mains().SampleInterval())
	require.Equal(t, 60*time.Second, Battery().SampleInterval())
}
