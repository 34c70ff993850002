package balance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContract_TailAligned(t *testing.T) {
	out := Contract([]float64{1, 2, 3}, []float64{10})
	require.Equal(t, []float64{1, 2, 13}, out)
}

func TestDistract_ClipsNegatives(t *testing.T) {
	out := Distract([]float64{5, 5}, []float64{2, 8}, false)
	require.Equal(t, []float64{3, 0}, out)

	out = Distract([]float64{5, 5}, []float64{2, 8}, true)
	require.Equal(t, []float64{3, -3}, out)
}

func TestDistract_TailAligned(t *testing.T) {
	// the shorter series aligns on the most recent element
	out := Distract([]float64{10}, []float64{1, 2, 3}, true)
	require.Equal(t, []float64{-1, -2, 7}, out)
}

func TestBalance_SingleMeterNetting(t *testing.T) {
	res := Balance(
		[]float64{10}, []float64{0},
		[]float64{3}, []float64{0},
		[]float64{0}, 1)

	require.Equal(t, []float64{7}, res.ImportLo)
	require.Equal(t, []float64{0}, res.ExportLo)
	require.Equal(t, []float64{3}, res.OwnUsage)
	require.Equal(t, []float64{0}, res.ImportHi)
	require.Equal(t, []float64{0}, res.ExportHi)
}

func TestBalance_Mode1ContractsRegisters(t *testing.T) {
	res := Balance(
		[]float64{4}, []float64{6},
		[]float64{2}, []float64{1},
		[]float64{5}, 1)

	// 10 in, 3 out, netted on one meter
	require.Equal(t, []float64{7}, res.ImportLo)
	require.Equal(t, []float64{0}, res.ExportLo)
	require.Equal(t, []float64{8}, res.OwnUsage)
}

func TestBalance_PerIndexTieBreak(t *testing.T) {
	res := Balance(
		[]float64{10, 2}, []float64{0, 0},
		[]float64{3, 9}, []float64{0, 0},
		[]float64{0, 0}, 2)

	require.Equal(t, []float64{7, 0}, res.ImportLo)
	require.Equal(t, []float64{0, 7}, res.ExportLo)
	require.Equal(t, []float64{3, 2}, res.OwnUsage)
}

func TestBalance_Mode2PreservesNetGridFlow(t *testing.T) {
	ilo, ihi := []float64{5, 12}, []float64{2, 4}
	xlo, xhi := []float64{8, 3}, []float64{1, 6}
	own := []float64{4, 4}

	res := Balance(ilo, ihi, xlo, xhi, own, 2)

	for i := range ilo {
		before := ilo[i] + ihi[i] - xlo[i] - xhi[i]
		after := res.ImportLo[i] + res.ImportHi[i] - res.ExportLo[i] - res.ExportHi[i]
		require.InDelta(t, before, after, 1e-9, "net grid flow changed at index %d", i)
	}
	// own usage gains whatever never crossed the meter
	require.Equal(t, []float64{10, 11}, res.OwnUsage)
}
