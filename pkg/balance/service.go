// Package balance implements the own-usage and import/export netting
// arithmetic used by the trend reports. All operations align their inputs on
// the most recent element: when two series differ in length, the shorter one
// is padded with zeroes at its old end, never at its recent end.
package balance

import (
	"math"

	"github.com/mbruggen/homeflux/pkg/types"
)

// Contract adds two series elementwise, tail-aligned.
func Contract(a, b []float64) []float64 {
	size := len(a)
	if len(b) > size {
		size = len(b)
	}
	ra := tailPad(a, size)
	rb := tailPad(b, size)
	out := make([]float64, size)
	for i := range out {
		out[i] = ra[i] + rb[i]
	}
	return out
}

// Distract subtracts b from a elementwise, tail-aligned. Unless
// allowNegatives is set, negative results are zeroed.
func Distract(a, b []float64, allowNegatives bool) []float64 {
	size := len(a)
	if len(b) > size {
		size = len(b)
	}
	ra := tailPad(a, size)
	rb := tailPad(b, size)
	out := make([]float64, size)
	for i := range out {
		out[i] = ra[i] - rb[i]
		if !allowNegatives && out[i] < 0 {
			out[i] = 0
		}
	}
	return out
}

// Balance nets import against export per tariff register and accounts the
// energy that never crossed the grid boundary as own usage.
//
// Mode 1 contracts the lo and hi registers into a single meter before
// netting; the hi outputs stay zero. Mode 2 nets the registers
// independently, which is what utility billing does: netting across
// registers would understate one tariff's true export.
//
// The tie-break is per index. Every timestep independently decides whether
// import or export won that interval.
func Balance(ilo, ihi, xlo, xhi, own []float64, mode int) types.BalanceResult {
	if mode == 1 {
		ilo = Contract(ilo, ihi)
		xlo = Contract(xlo, xhi)
		ihi = make([]float64, len(ilo))
		xhi = make([]float64, len(xlo))
	}

	size := maxLen(ilo, ihi, xlo, xhi, own)
	ilo = tailPad(ilo, size)
	ihi = tailPad(ihi, size)
	xlo = tailPad(xlo, size)
	xhi = tailPad(xhi, size)
	own = tailPad(own, size)

	res := types.BalanceResult{
		ImportLo: make([]float64, size),
		ImportHi: make([]float64, size),
		ExportLo: make([]float64, size),
		ExportHi: make([]float64, size),
		OwnUsage: make([]float64, size),
	}

	difLo := Distract(ilo, xlo, true)
	for i, v := range difLo {
		if v >= 0 {
			res.ImportLo[i] = v
			res.OwnUsage[i] = own[i] + xlo[i]
			res.ExportLo[i] = 0
		} else {
			res.ImportLo[i] = 0
			res.OwnUsage[i] = own[i] + ilo[i]
			res.ExportLo[i] = math.Abs(v)
		}
	}

	if mode == 2 {
		difHi := Distract(ihi, xhi, true)
		for i, v := range difHi {
			if v >= 0 {
				res.ImportHi[i] = v
				res.OwnUsage[i] += xhi[i]
				res.ExportHi[i] = 0
			} else {
				res.ImportHi[i] = 0
				res.OwnUsage[i] += ihi[i]
				res.ExportHi[i] = math.Abs(v)
			}
		}
	}

	return res
}

// tailPad returns a copy of a grown to size, padded with zeroes at the head.
func tailPad(a []float64, size int) []float64 {
	out := make([]float64, size)
	copy(out[size-len(a):], a)
	return out
}

func maxLen(seqs ...[]float64) int {
	size := 0
	for _, s := range seqs {
		if len(s) > size {
			size = len(s)
		}
	}
	return size
}
