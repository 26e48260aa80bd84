// Package stats contains the run counters and the per-position statistics
// accumulator with its report layout.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MG-RAST/Sieve/sieve/conf"
)

// RunStats is the set of lock free counters and per-stage timers a run
// maintains. Counters only grow while a run is in progress; concurrent
// readers may observe intermediate values.
type RunStats struct {
	batchesIn       uint64
	recordsIn       uint64
	recordsPassed   uint64
	recordsFiltered uint64
	recordsModified uint64
	recordsErrored  uint64

	parseNs     int64
	transformNs int64
	sinkNs      int64

	bytesIn   int64
	noTimings bool
}

func NewRunStats() *RunStats {
	return &RunStats{}
}

// DisableTimings drops the per-stage timer maintenance. The essential record
// counters keep running.
func (s *RunStats) DisableTimings() {
	s.noTimings = true
}

func (s *RunStats) AddBatch() { atomic.AddUint64(&s.batchesIn, 1) }

func (s *RunStats) AddRecordsIn(n uint64) { atomic.AddUint64(&s.recordsIn, n) }

func (s *RunStats) AddRecordsPassed(n uint64) { atomic.AddUint64(&s.recordsPassed, n) }

func (s *RunStats) AddRecordsFiltered(n uint64) { atomic.AddUint64(&s.recordsFiltered, n) }

func (s *RunStats) AddRecordsModified(n uint64) { atomic.AddUint64(&s.recordsModified, n) }

func (s *RunStats) AddRecordsErrored(n uint64) { atomic.AddUint64(&s.recordsErrored, n) }

func (s *RunStats) AddParseTime(d time.Duration) {
	if s.noTimings {
		return
	}
	atomic.AddInt64(&s.parseNs, int64(d))
}

func (s *RunStats) AddTransformTime(d time.Duration) {
	if s.noTimings {
		return
	}
	atomic.AddInt64(&s.transformNs, int64(d))
}

func (s *RunStats) AddSinkTime(d time.Duration) {
	if s.noTimings {
		return
	}
	atomic.AddInt64(&s.sinkNs, int64(d))
}

func (s *RunStats) SetBytesIn(n int64) { atomic.StoreInt64(&s.bytesIn, n) }

func (s *RunStats) BatchesIn() uint64 { return atomic.LoadUint64(&s.batchesIn) }

func (s *RunStats) RecordsIn() uint64 { return atomic.LoadUint64(&s.recordsIn) }

func (s *RunStats) RecordsPassed() uint64 { return atomic.LoadUint64(&s.recordsPassed) }

func (s *RunStats) RecordsFiltered() uint64 { return atomic.LoadUint64(&s.recordsFiltered) }

func (s *RunStats) RecordsModified() uint64 { return atomic.LoadUint64(&s.recordsModified) }

func (s *RunStats) RecordsErrored() uint64 { return atomic.LoadUint64(&s.recordsErrored) }

// Summary is the finalized view handed back when a run returns.
type Summary struct {
	BatchesIn       uint64
	RecordsIn       uint64
	RecordsPassed   uint64
	RecordsFiltered uint64
	RecordsModified uint64
	RecordsErrored  uint64

	ParseTime     time.Duration
	TransformTime time.Duration
	SinkTime      time.Duration
	Elapsed       time.Duration

	BytesIn    int64
	PassRate   float64
	FilterRate float64
	MBPerSec   float64
}

// Finalize computes the derived rates. Divisions clamp the denominator so an
// empty run reports zero rates rather than failing.
func (s *RunStats) Finalize(elapsed time.Duration) Summary {
	total := s.RecordsIn()
	div := total
	if div == 0 {
		div = 1
	}
	bytes := atomic.LoadInt64(&s.bytesIn)
	if bytes == 0 {
		bytes = int64(total) * conf.EstimatedAvgRead
	}
	mbps := 0.0
	if elapsed > 0 {
		mbps = float64(bytes) / (1024 * 1024) / elapsed.Seconds()
	}
	return Summary{
		BatchesIn:       s.BatchesIn(),
		RecordsIn:       total,
		RecordsPassed:   s.RecordsPassed(),
		RecordsFiltered: s.RecordsFiltered(),
		RecordsModified: s.RecordsModified(),
		RecordsErrored:  s.RecordsErrored(),
		ParseTime:       time.Duration(atomic.LoadInt64(&s.parseNs)),
		TransformTime:   time.Duration(atomic.LoadInt64(&s.transformNs)),
		SinkTime:        time.Duration(atomic.LoadInt64(&s.sinkNs)),
		Elapsed:         elapsed,
		BytesIn:         bytes,
		PassRate:        float64(s.RecordsPassed()) / float64(div),
		FilterRate:      float64(s.RecordsFiltered()) / float64(div),
		MBPerSec:        mbps,
	}
}

// String renders the one line perf summary the CLI logs at end of run.
func (s Summary) String() string {
	return fmt.Sprintf("reads=%d passed=%d filtered=%d errored=%d pass_rate=%.2f%% elapsed=%s throughput=%.2fMB/s",
		s.RecordsIn, s.RecordsPassed, s.RecordsFiltered, s.RecordsErrored,
		s.PassRate*100, s.Elapsed.Round(time.Millisecond), s.MBPerSec)
}
