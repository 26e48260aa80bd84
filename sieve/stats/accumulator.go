package stats

import (
	"math"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
)

// Base axis order of the per-position base histogram.
const (
	BaseA = iota
	BaseC
	BaseG
	BaseT
	BaseN
	baseCount
)

// Accumulator aggregates per-position quality and base counts. It is a
// commutative monoid under Merge: the identity is the zero value, and any
// fold order over the same records yields the same totals.
type Accumulator struct {
	TotalReads uint64
	ReadLength int
	PosQual    [][]uint64
	PosBase    [][]uint64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) init(readLength int) {
	a.ReadLength = readLength
	a.PosQual = make([][]uint64, readLength)
	a.PosBase = make([][]uint64, readLength)
	for i := 0; i < readLength; i++ {
		a.PosQual[i] = make([]uint64, conf.MaxQual)
		a.PosBase[i] = make([]uint64, baseCount)
	}
}

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return BaseA
	case 'C', 'c':
		return BaseC
	case 'G', 'g':
		return BaseG
	case 'T', 't':
		return BaseT
	}
	return BaseN
}

// Tally folds one record into the accumulator. The first record fixes the
// read length; any later record of a different length fails the run.
func (a *Accumulator) Tally(r *record.Record, offset int) error {
	if a.ReadLength == 0 && a.TotalReads == 0 {
		a.init(r.Len())
	}
	if r.Len() != a.ReadLength {
		return errors.ErrVariableReadLength
	}
	a.TotalReads++
	for i := 0; i < a.ReadLength; i++ {
		q := int(r.Qual[i]) - offset
		if q < 0 {
			q = 0
		} else if q >= conf.MaxQual {
			q = conf.MaxQual - 1
		}
		a.PosQual[i][q]++
		a.PosBase[i][baseIndex(r.Seq[i])]++
	}
	return nil
}

// Merge folds another accumulator into this one elementwise. Merging two
// non-empty accumulators of different read lengths fails.
func (a *Accumulator) Merge(o *Accumulator) error {
	if o == nil || o.TotalReads == 0 {
		return nil
	}
	if a.TotalReads == 0 {
		if a.ReadLength != 0 && a.ReadLength != o.ReadLength {
			return errors.ErrVariableReadLength
		}
		a.TotalReads = o.TotalReads
		a.ReadLength = o.ReadLength
		a.PosQual = o.PosQual
		a.PosBase = o.PosBase
		return nil
	}
	if a.ReadLength != o.ReadLength {
		return errors.ErrVariableReadLength
	}
	a.TotalReads += o.TotalReads
	for i := 0; i < a.ReadLength; i++ {
		for j := range a.PosQual[i] {
			a.PosQual[i][j] += o.PosQual[i][j]
		}
		for j := range a.PosBase[i] {
			a.PosBase[i][j] += o.PosBase[i][j]
		}
	}
	return nil
}

// BaseCount is TotalReads * ReadLength.
func (a *Accumulator) BaseCount() uint64 {
	return a.TotalReads * uint64(a.ReadLength)
}

// QualAtLeast counts bases at or above a phred threshold across all positions.
func (a *Accumulator) QualAtLeast(threshold int) uint64 {
	var n uint64
	for i := 0; i < a.ReadLength; i++ {
		for q := threshold; q < conf.MaxQual; q++ {
			n += a.PosQual[i][q]
		}
	}
	return n
}

// BaseTotals sums the per-position base counts over all positions, in
// A, C, G, T, N order.
func (a *Accumulator) BaseTotals() [baseCount]uint64 {
	var totals [baseCount]uint64
	for i := 0; i < a.ReadLength; i++ {
		for j, n := range a.PosBase[i] {
			totals[j] += n
		}
	}
	return totals
}

// AvgQual is the mean phred score at one position, per read.
func (a *Accumulator) AvgQual(pos int) float64 {
	if a.TotalReads == 0 {
		return 0
	}
	var sum uint64
	for q, n := range a.PosQual[pos] {
		sum += n * uint64(q)
	}
	return float64(sum) / float64(a.TotalReads)
}

// ErrRate is the expected error rate at one position,
// sum over q of count(q)*10^(-q/10), per read.
func (a *Accumulator) ErrRate(pos int) float64 {
	if a.TotalReads == 0 {
		return 0
	}
	rate := 0.0
	for q, n := range a.PosQual[pos] {
		rate += float64(n) * math.Pow(10, -0.1*float64(q))
	}
	return rate / float64(a.TotalReads)
}
