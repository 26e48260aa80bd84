package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/pool"
	"github.com/MG-RAST/Sieve/sieve/record"
	"github.com/MG-RAST/Sieve/sieve/stats"
	"github.com/MG-RAST/Sieve/sieve/stream"
)

// StatOptions configures one statistics run. The parse stage and pool usage
// are shared with the processing pipeline; the transform stage is replaced by
// a per-batch tally and the sink by an in-order fold.
type StatOptions struct {
	Source      stream.Source
	PhredOffset int

	BatchSize   int
	Workers     int
	TokenBudget int

	Pool  *pool.Pool
	Stats *stats.RunStats
}

// tally carries one batch's partial accumulator and the id of the batch it
// came from, so the fold stage can keep a deterministic order.
type tally struct {
	id  uint64
	acc *stats.Accumulator
}

// RunStatistics folds the whole input into one accumulator. The input must
// have a fixed read length; a mismatch fails the run with
// errors.ErrVariableReadLength.
func RunStatistics(o StatOptions) (*stats.Accumulator, stats.Summary, error) {
	po := Options{
		Source:      o.Source,
		Sink:        nil,
		BatchSize:   o.BatchSize,
		Workers:     o.Workers,
		TokenBudget: o.TokenBudget,
		Pool:        o.Pool,
		Stats:       o.Stats,
	}
	if err := po.normalize(false); err != nil {
		return nil, stats.Summary{}, err
	}
	o.Workers = po.Workers
	o.Stats = po.Stats
	if o.PhredOffset == 0 {
		o.PhredOffset = 33
	}
	start := time.Now()

	var total *stats.Accumulator
	var err error
	if o.Workers <= 1 {
		total, err = statSequential(&o)
	} else {
		total, err = statParallel(&o)
	}

	if bc, ok := o.Source.(stream.ByteCounter); ok {
		o.Stats.SetBytesIn(bc.BytesRead())
	}
	cerr := o.Source.Close()
	o.Pool.Shutdown()
	if err == nil {
		err = errors.Wrap(errors.KindSource, cerr, "source close failed")
	}
	return total, o.Stats.Finalize(time.Since(start)), err
}

func statParallel(o *StatOptions) (*stats.Accumulator, error) {
	tokens := make(chan struct{}, o.TokenBudget)
	for i := 0; i < o.TokenBudget; i++ {
		tokens <- struct{}{}
	}
	parsed := make(chan *record.Batch, o.TokenBudget)
	tallied := make(chan tally, o.TokenBudget)

	po := &Options{
		Source:      o.Source,
		BatchSize:   o.BatchSize,
		TokenBudget: o.TokenBudget,
		Pool:        o.Pool,
		Stats:       o.Stats,
	}

	total := stats.NewAccumulator()
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return parseLoop(ctx, po, parsed, tokens)
	})

	var workers sync.WaitGroup
	workers.Add(o.Workers)
	for i := 0; i < o.Workers; i++ {
		g.Go(func() error {
			defer workers.Done()
			return tallyLoop(ctx, o, parsed, tallied, tokens)
		})
	}
	go func() {
		workers.Wait()
		close(tallied)
	}()

	g.Go(func() error {
		return foldLoop(total, tallied, tokens)
	})

	err := g.Wait()
	for range tallied {
	}
	for b := range parsed {
		o.Pool.Release(b)
	}
	return total, err
}

// tallyLoop is the statistics S2: fold a batch into a fresh partial
// accumulator, release the batch, and pass the partial on with its batch id.
// The token travels with the partial until the fold stage is done with it.
func tallyLoop(ctx context.Context, o *StatOptions, parsed <-chan *record.Batch, tallied chan<- tally, tokens chan struct{}) error {
	for batch := range parsed {
		if ctx.Err() != nil {
			o.Pool.Release(batch)
			tokens <- struct{}{}
			continue
		}
		t0 := time.Now()
		acc, err := tallyBatch(o, batch)
		o.Stats.AddTransformTime(time.Since(t0))
		id := batch.ID
		o.Pool.Release(batch)
		if err != nil {
			tokens <- struct{}{}
			return err
		}
		tallied <- tally{id: id, acc: acc}
	}
	return nil
}

func tallyBatch(o *StatOptions, batch *record.Batch) (acc *stats.Accumulator, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.KindWorkerPanic, "tally panic: %v", r)
		}
	}()
	acc = stats.NewAccumulator()
	for i := range batch.Reads {
		if err := acc.Tally(&batch.Reads[i], o.PhredOffset); err != nil {
			return nil, err
		}
	}
	o.Stats.AddRecordsPassed(uint64(batch.Len()))
	return acc, nil
}

// foldLoop is the statistics S3: merge partials into the global accumulator
// in batch id order. In-order folding is sufficient for determinism; the
// merge itself is commutative.
func foldLoop(total *stats.Accumulator, tallied <-chan tally, tokens chan struct{}) error {
	next := uint64(1)
	pending := make(map[uint64]*stats.Accumulator)
	for t := range tallied {
		pending[t.id] = t.acc
		for {
			acc, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			err := total.Merge(acc)
			tokens <- struct{}{}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// statSequential is the single threaded statistics loop.
func statSequential(o *StatOptions) (*stats.Accumulator, error) {
	total := stats.NewAccumulator()
	for {
		batch, err := o.Pool.Acquire()
		if err != nil {
			return total, nil
		}

		t0 := time.Now()
		n, ferr := o.Source.Fill(batch, o.BatchSize)
		o.Stats.AddParseTime(time.Since(t0))

		if ferr != nil && ferr != io.EOF {
			o.Pool.Release(batch)
			return total, errors.Wrap(errors.KindSource, ferr, "source fill failed")
		}
		if n == 0 {
			o.Pool.Release(batch)
			return total, nil
		}
		o.Stats.AddBatch()
		o.Stats.AddRecordsIn(uint64(n))

		t0 = time.Now()
		acc, terr := tallyBatch(o, batch)
		o.Stats.AddTransformTime(time.Since(t0))
		o.Pool.Release(batch)
		if terr != nil {
			return total, terr
		}
		t0 = time.Now()
		merr := total.Merge(acc)
		o.Stats.AddSinkTime(time.Since(t0))
		if merr != nil {
			return total, merr
		}
		if ferr == io.EOF {
			return total, nil
		}
	}
}
