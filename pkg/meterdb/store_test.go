package meterdb

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	tdb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { tdb.Close() })

	_, err = tdb.Exec(`CREATE TABLE mains (
		sample_time TEXT,
		sample_epoch INTEGER PRIMARY KEY,
		T1in REAL,
		powerin REAL
	)`)
	require.NoError(t, err)
	return NewStore(tdb, "mains", []string{"T1in", "powerin"}), tdb
}

func stamped(t *testing.T, value string, fields map[string]float64) types.Sample {
	t.Helper()
	stamp, err := time.ParseInLocation(types.DTFormat, value, time.Local)
	require.NoError(t, err)
	return types.NewSample(stamp, fields)
}

func TestStore_InsertDrainsQueue(t *testing.T) {
	store, tdb := testStore(t)

	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 100, "powerin": 450}))
	store.Queue(stamped(t, "2026-03-14 10:30:00", map[string]float64{"T1in": 105, "powerin": 420}))
	require.Equal(t, 2, store.Pending())

	require.NoError(t, store.Insert())
	require.Equal(t, 0, store.Pending())

	var count int
	require.NoError(t, tdb.QueryRow("SELECT COUNT(*) FROM mains").Scan(&count))
	require.Equal(t, 2, count)
}

func TestStore_ReinsertReplacesByEpoch(t *testing.T) {
	store, tdb := testStore(t)

	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 100}))
	require.NoError(t, store.Insert())

	// re-running the same window overwrites, it never duplicates
	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 112}))
	require.NoError(t, store.Insert())

	var count int
	var v float64
	require.NoError(t, tdb.QueryRow("SELECT COUNT(*), MAX(T1in) FROM mains").Scan(&count, &v))
	require.Equal(t, 1, count)
	require.Equal(t, float64(112), v)
}

func TestStore_MissingFieldStoresZero(t *testing.T) {
	store, tdb := testStore(t)

	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 100}))
	require.NoError(t, store.Insert())

	var p float64
	require.NoError(t, tdb.QueryRow("SELECT powerin FROM mains").Scan(&p))
	require.Equal(t, float64(0), p)
}

func TestLatestDatapoint(t *testing.T) {
	store, _ := testStore(t)

	latest, err := store.LatestDatapoint()
	require.NoError(t, err)
	require.True(t, latest.IsZero())

	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 100}))
	store.Queue(stamped(t, "2026-03-14 10:30:00", map[string]float64{"T1in": 105}))
	require.NoError(t, store.Insert())

	latest, err = store.LatestDatapoint()
	require.NoError(t, err)
	require.Equal(t, "2026-03-14 10:30:00", latest.Format(types.DTFormat))
}

func TestPruneBefore(t *testing.T) {
	store, tdb := testStore(t)

	old := stamped(t, "2026-01-01 00:00:00", map[string]float64{"T1in": 1})
	recent := stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 2})
	store.Queue(old)
	store.Queue(recent)
	require.NoError(t, store.Insert())

	require.NoError(t, store.PruneBefore(recent.SampleEpoch))

	var count int
	require.NoError(t, tdb.QueryRow("SELECT COUNT(*) FROM mains").Scan(&count))
	require.Equal(t, 1, count)
}

func TestStore_InsertFailurePropagates(t *testing.T) {
	store, _ := testStore(t)
	store.sleep = func(time.Duration) {}

	// a second row with the same epoch is fine, but a dropped table is not
	_, err := store.db.Exec("DROP TABLE mains")
	require.NoError(t, err)

	store.Queue(stamped(t, "2026-03-14 10:15:00", map[string]float64{"T1in": 100}))
	require.Error(t, store.Insert())
	require.Equal(t, 1, store.Pending())
}
