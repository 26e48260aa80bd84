package pipeline

import (
	"io"
	"time"

	"github.com/MG-RAST/Sieve/sieve/errors"
)

// runSequential is the single threaded equivalent of the parallel path, used
// when the worker budget is one. One batch is in flight at a time and no
// tokens are needed. Output is byte identical to the parallel path.
func runSequential(o *Options) error {
	var nextID uint64
	for {
		batch, err := o.Pool.Acquire()
		if err != nil {
			return nil
		}
		nextID++
		batch.ID = nextID

		t0 := time.Now()
		n, ferr := o.Source.Fill(batch, o.BatchSize)
		o.Stats.AddParseTime(time.Since(t0))

		if ferr != nil && ferr != io.EOF {
			o.Pool.Release(batch)
			return errors.Wrap(errors.KindSource, ferr, "source fill failed")
		}
		if n == 0 {
			o.Pool.Release(batch)
			return nil
		}
		o.Stats.AddBatch()
		o.Stats.AddRecordsIn(uint64(n))

		t0 = time.Now()
		terr := transformBatch(o, batch)
		o.Stats.AddTransformTime(time.Since(t0))
		if terr != nil {
			o.Pool.Release(batch)
			return terr
		}

		t0 = time.Now()
		werr := o.Sink.Write(batch)
		o.Stats.AddSinkTime(time.Since(t0))
		o.Pool.Release(batch)
		if werr != nil {
			return errors.Wrap(errors.KindSink, werr, "sink write failed")
		}
		if ferr == io.EOF {
			return nil
		}
	}
}
