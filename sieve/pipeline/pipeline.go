// Package pipeline implements the bounded three stage processing engine:
// a serial parse stage that assigns batch ids, a parallel transform stage,
// and a serial sink stage that restores batch order. Tokens bound the number
// of in-flight batches and are the only backpressure mechanism.
package pipeline

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/filter"
	"github.com/MG-RAST/Sieve/sieve/pool"
	"github.com/MG-RAST/Sieve/sieve/record"
	"github.com/MG-RAST/Sieve/sieve/stats"
	"github.com/MG-RAST/Sieve/sieve/stream"
)

// Options configures one processing run. Pool and Stats are injected; the
// engine never keeps process-wide state.
type Options struct {
	Source stream.Source
	Sink   stream.Sink

	Predicates []filter.Predicate
	Mutators   []filter.Mutator

	// BatchSize is the record cap per batch. Workers is the transform stage
	// parallelism; 0 means hardware concurrency and 1 runs the sequential
	// path. TokenBudget caps in-flight batches and must be at least 2.
	BatchSize   int
	Workers     int
	TokenBudget int

	Pool  *pool.Pool
	Stats *stats.RunStats
}

func (o *Options) normalize(needSink bool) error {
	if o.Source == nil {
		return errors.New(errors.KindConfig, "source is required")
	}
	if needSink && o.Sink == nil {
		return errors.New(errors.KindConfig, "sink is required")
	}
	if o.BatchSize < 1 {
		return errors.New(errors.KindConfig, "batch size must be >= 1")
	}
	if o.TokenBudget < 2 {
		return errors.New(errors.KindConfig, "token budget must be >= 2")
	}
	if o.Pool == nil {
		return errors.New(errors.KindConfig, "batch pool is required")
	}
	if o.Pool.Capacity() < o.TokenBudget {
		return errors.New(errors.KindConfig, "pool capacity must be >= token budget")
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Stats == nil {
		o.Stats = stats.NewRunStats()
	}
	return nil
}

// Run drives records from the source through the predicate and mutator chains
// to the sink, preserving input order. It returns the finalized run counters
// and the first fatal error, if any. Source and sink are closed exactly once.
func Run(o Options) (stats.Summary, error) {
	if err := o.normalize(true); err != nil {
		return stats.Summary{}, err
	}
	start := time.Now()

	var err error
	if o.Workers <= 1 {
		err = runSequential(&o)
	} else {
		err = runParallel(&o)
	}

	if bc, ok := o.Source.(stream.ByteCounter); ok {
		o.Stats.SetBytesIn(bc.BytesRead())
	}
	cerr := o.Source.Close()
	serr := o.Sink.Close()
	o.Pool.Shutdown()
	if err == nil {
		err = errors.Wrap(errors.KindSource, cerr, "source close failed")
	}
	if err == nil {
		err = errors.Wrap(errors.KindSink, serr, "sink close failed")
	}
	return o.Stats.Finalize(time.Since(start)), err
}

// runParallel wires the three stages. Channel capacities equal the token
// budget, so no send on parsed or transformed can ever block: at most
// TokenBudget batches exist past the parse stage at any instant. That lets a
// failing stage return immediately while the others drain.
func runParallel(o *Options) error {
	tokens := make(chan struct{}, o.TokenBudget)
	for i := 0; i < o.TokenBudget; i++ {
		tokens <- struct{}{}
	}
	parsed := make(chan *record.Batch, o.TokenBudget)
	transformed := make(chan *record.Batch, o.TokenBudget)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return parseLoop(ctx, o, parsed, tokens)
	})

	var workers sync.WaitGroup
	workers.Add(o.Workers)
	for i := 0; i < o.Workers; i++ {
		g.Go(func() error {
			defer workers.Done()
			return transformLoop(ctx, o, parsed, transformed, tokens)
		})
	}
	go func() {
		workers.Wait()
		close(transformed)
	}()

	g.Go(func() error {
		return sinkLoop(o, transformed, tokens)
	})

	err := g.Wait()

	// Abort can leave batches parked in the channels; reclaim them so the
	// pool accounts every batch as returned.
	for b := range transformed {
		o.Pool.Release(b)
	}
	for b := range parsed {
		o.Pool.Release(b)
	}
	return err
}

// parseLoop is S1: the only caller of Source.Fill and the only writer of
// batch ids, which increase strictly from 1.
func parseLoop(ctx context.Context, o *Options, parsed chan<- *record.Batch, tokens chan struct{}) error {
	defer close(parsed)
	var nextID uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tokens:
		}

		batch, err := o.Pool.Acquire()
		if err != nil {
			// pool shutdown is a cooperative end of stream
			tokens <- struct{}{}
			return nil
		}
		nextID++
		batch.ID = nextID

		t0 := time.Now()
		n, ferr := o.Source.Fill(batch, o.BatchSize)
		o.Stats.AddParseTime(time.Since(t0))

		if ferr != nil && ferr != io.EOF {
			o.Pool.Release(batch)
			tokens <- struct{}{}
			return errors.Wrap(errors.KindSource, ferr, "source fill failed")
		}
		if n == 0 {
			o.Pool.Release(batch)
			tokens <- struct{}{}
			return nil
		}

		o.Stats.AddBatch()
		o.Stats.AddRecordsIn(uint64(n))

		select {
		case parsed <- batch:
		case <-ctx.Done():
			o.Pool.Release(batch)
			tokens <- struct{}{}
			return nil
		}
		if ferr == io.EOF {
			return nil
		}
	}
}

// transformLoop is one S2 worker. Batches dequeued after an abort are still
// released so the pool drains cleanly.
func transformLoop(ctx context.Context, o *Options, parsed <-chan *record.Batch, transformed chan<- *record.Batch, tokens chan struct{}) error {
	for batch := range parsed {
		if ctx.Err() != nil {
			o.Pool.Release(batch)
			tokens <- struct{}{}
			continue
		}
		t0 := time.Now()
		err := transformBatch(o, batch)
		o.Stats.AddTransformTime(time.Since(t0))
		if err != nil {
			o.Pool.Release(batch)
			tokens <- struct{}{}
			return err
		}
		transformed <- batch
	}
	return nil
}

// transformBatch runs the predicate and mutator chains over one batch and
// swaps the survivors in. A panic inside a predicate or mutator surfaces as a
// fatal error with the batch still owned by the caller.
func transformBatch(o *Options, batch *record.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.KindWorkerPanic, "transform panic: %v", r)
		}
	}()

	var passed, filtered, errored, modified uint64
	if batch.Paired() {
		reads := make([]record.Record, 0, len(batch.Reads))
		mates := make([]record.Record, 0, len(batch.Mates))
		for i := range batch.Reads {
			r1, r2 := &batch.Reads[i], &batch.Mates[i]
			if !filter.Pass(o.Predicates, r1) || !filter.Pass(o.Predicates, r2) {
				filtered++
				continue
			}
			l1, l2 := r1.Len(), r2.Len()
			if filter.Mutate(o.Mutators, r1) != nil || filter.Mutate(o.Mutators, r2) != nil {
				errored++
				continue
			}
			if r1.Len() != l1 || r2.Len() != l2 {
				modified++
			}
			passed++
			reads = append(reads, *r1)
			mates = append(mates, *r2)
		}
		batch.Reads = reads
		batch.Mates = mates
	} else {
		reads := make([]record.Record, 0, len(batch.Reads))
		for i := range batch.Reads {
			r := &batch.Reads[i]
			if !filter.Pass(o.Predicates, r) {
				filtered++
				continue
			}
			l := r.Len()
			if filter.Mutate(o.Mutators, r) != nil {
				errored++
				continue
			}
			if r.Len() != l {
				modified++
			}
			passed++
			reads = append(reads, *r)
		}
		batch.Reads = reads
	}

	o.Stats.AddRecordsPassed(passed)
	o.Stats.AddRecordsFiltered(filtered)
	o.Stats.AddRecordsErrored(errored)
	o.Stats.AddRecordsModified(modified)
	return nil
}

// sinkLoop is S3: it consumes in strict batch id order through a reorder
// buffer, releases each batch to the pool, and only then returns its token.
func sinkLoop(o *Options, transformed <-chan *record.Batch, tokens chan struct{}) error {
	next := uint64(1)
	pending := make(map[uint64]*record.Batch)
	for batch := range transformed {
		pending[batch.ID] = batch
		for {
			b, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			t0 := time.Now()
			err := o.Sink.Write(b)
			o.Stats.AddSinkTime(time.Since(t0))
			o.Pool.Release(b)
			tokens <- struct{}{}
			if err != nil {
				for _, rb := range pending {
					o.Pool.Release(rb)
				}
				return errors.Wrap(errors.KindSink, err, "sink write failed")
			}
		}
	}
	for _, b := range pending {
		o.Pool.Release(b)
	}
	return nil
}
