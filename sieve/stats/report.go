package stats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MG-RAST/Sieve/sieve/errors"
)

// WriteReport renders the per-position statistics report. name is the input
// basename, phred the quality encoding offset. Percentages and per-position
// quantities are printed to two decimal places.
func WriteReport(w io.Writer, name string, phred int, a *Accumulator) error {
	nBases := a.BaseCount()
	if nBases == 0 {
		return errors.New(errors.KindReadLength, "no data to report")
	}

	q20 := a.QualAtLeast(20)
	q30 := a.QualAtLeast(30)
	totals := a.BaseTotals()
	gc := totals[BaseG] + totals[BaseC]

	pct := func(n uint64) float64 {
		return 100 * float64(n) / float64(nBases)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#Name\t%s\n", name)
	fmt.Fprintf(bw, "#PhredQual\t%d\n", phred)
	fmt.Fprintf(bw, "#ReadNum\t%d\n", a.TotalReads)
	fmt.Fprintf(bw, "#ReadLength\t%d\n", a.ReadLength)
	fmt.Fprintf(bw, "#BaseCount\t%d\n", nBases)
	fmt.Fprintf(bw, "#Q20(>=20)\t%d\t%.2f%%\n", q20, pct(q20))
	fmt.Fprintf(bw, "#Q30(>=30)\t%d\t%.2f%%\n", q30, pct(q30))
	fmt.Fprintf(bw, "#A\t%d\t%.2f%%\n", totals[BaseA], pct(totals[BaseA]))
	fmt.Fprintf(bw, "#C\t%d\t%.2f%%\n", totals[BaseC], pct(totals[BaseC]))
	fmt.Fprintf(bw, "#G\t%d\t%.2f%%\n", totals[BaseG], pct(totals[BaseG]))
	fmt.Fprintf(bw, "#T\t%d\t%.2f%%\n", totals[BaseT], pct(totals[BaseT]))
	fmt.Fprintf(bw, "#N\t%d\t%.2f%%\n", totals[BaseN], pct(totals[BaseN]))
	fmt.Fprintf(bw, "#GC\t%d\t%.2f%%\n", gc, pct(gc))

	fmt.Fprintf(bw, "#Pos\tA\tC\tG\tT\tN\tAvgQual\tErrRate\n")
	for i := 0; i < a.ReadLength; i++ {
		fmt.Fprintf(bw, "%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			i+1,
			a.PosBase[i][BaseA], a.PosBase[i][BaseC], a.PosBase[i][BaseG],
			a.PosBase[i][BaseT], a.PosBase[i][BaseN],
			a.AvgQual(i), a.ErrRate(i))
	}
	return bw.Flush()
}

// WriteReportFile writes the report to path, naming the dataset after the
// input file with any .gz suffix stripped.
func WriteReportFile(path, inputPath string, phred int, a *Accumulator) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.KindSink, err, "failed to create statistics file")
	}
	name := strings.TrimSuffix(filepath.Base(inputPath), ".gz")
	if werr := WriteReport(f, name, phred, a); werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}
