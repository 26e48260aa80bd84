// Package stream contains the source and sink contracts the pipelines consume
package stream

import (
	"github.com/MG-RAST/Sieve/sieve/record"
)

// Source fills a batch with up to max records in input order. It reports
// io.EOF once the stream is exhausted and is only ever called from the serial
// parse stage, one call at a time.
type Source interface {
	Fill(b *record.Batch, max int) (int, error)
	Close() error
}

// Sink accepts finished batches. It is called from the serial sink stage in
// strict batch id order.
type Sink interface {
	Write(b *record.Batch) error
	Close() error
}

// ByteCounter is an optional Source extension. When implemented, the reported
// byte count is used for throughput instead of an estimated record size.
type ByteCounter interface {
	BytesRead() int64
}
