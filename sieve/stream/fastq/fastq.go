// Package fastq implements gzip aware FASTQ stream adapters for the engine's
// source and sink contracts.
package fastq

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	perrors "github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
)

// Reader is a FASTQ record source over a plain or gzip compressed file.
type Reader struct {
	fh    *xopen.Reader
	bytes int64
	eof   bool
}

// NewReader opens a FASTQ file. Gzip framing is detected from the content, so
// both plain and .gz inputs work.
func NewReader(name string) (*Reader, error) {
	fh, err := xopen.Ropen(name)
	if err != nil {
		return nil, errors.Wrap(errors.KindSource, perrors.Wrapf(err, "open %s", name), "failed to open input")
	}
	return &Reader{fh: fh}, nil
}

// readLine returns the next line body without the trailing newline. A final
// line without a newline still counts.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.fh.ReadBytes('\n')
	r.bytes += int64(len(line))
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return chomp(line), nil
		}
		return nil, err
	}
	return chomp(line), nil
}

func chomp(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// read parses one four line record.
func (r *Reader) read() (record.Record, error) {
	var id []byte
	for {
		line, err := r.readLine()
		if err != nil {
			return record.Record{}, err
		}
		if len(line) > 0 {
			id = line
			break
		}
	}
	if id[0] != '@' {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: id line does not start with @")
	}

	seq, err := r.readLine()
	if err != nil {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: truncated record")
	}
	sep, err := r.readLine()
	if err != nil {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: truncated record")
	}
	if len(sep) == 0 || sep[0] != '+' {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: plus line does not start with +")
	}
	qual, err := r.readLine()
	if err != nil {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: truncated record")
	}
	if len(seq) != len(qual) {
		return record.Record{}, errors.New(errors.KindSource, "invalid format: length of sequence and quality lines do not match")
	}

	rec, err := record.New(id[1:], seq, sep[1:], qual)
	if err != nil {
		return record.Record{}, errors.Wrap(errors.KindSource, err, "invalid record")
	}
	return rec, nil
}

// Fill appends up to max records in input order. It reports io.EOF only on a
// call that appends nothing.
func (r *Reader) Fill(b *record.Batch, max int) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	n := 0
	for n < max {
		rec, err := r.read()
		if err == io.EOF {
			r.eof = true
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err != nil {
			return n, err
		}
		b.Append(rec)
		n++
	}
	return n, nil
}

// BytesRead reports decompressed bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.bytes
}

func (r *Reader) Close() error {
	return r.fh.Close()
}

// PairedReader consumes two FASTQ streams in lockstep.
type PairedReader struct {
	r1, r2 *Reader
}

func NewPairedReader(name1, name2 string) (*PairedReader, error) {
	r1, err := NewReader(name1)
	if err != nil {
		return nil, err
	}
	r2, err := NewReader(name2)
	if err != nil {
		r1.Close()
		return nil, err
	}
	return &PairedReader{r1: r1, r2: r2}, nil
}

// Fill appends up to max pairs so that position i of each vector is the
// corresponding mate. One stream ending before the other is a mate desync.
func (p *PairedReader) Fill(b *record.Batch, max int) (int, error) {
	if p.r1.eof && p.r2.eof {
		return 0, io.EOF
	}
	n := 0
	for n < max {
		rec1, err1 := p.r1.read()
		rec2, err2 := p.r2.read()
		if err1 == io.EOF && err2 == io.EOF {
			p.r1.eof = true
			p.r2.eof = true
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err1 == io.EOF || err2 == io.EOF {
			return n, errors.New(errors.KindSource, "mate files out of sync: one input ended early")
		}
		if err1 != nil {
			return n, err1
		}
		if err2 != nil {
			return n, err2
		}
		b.AppendPair(rec1, rec2)
		n++
	}
	return n, nil
}

func (p *PairedReader) BytesRead() int64 {
	return p.r1.bytes + p.r2.bytes
}

func (p *PairedReader) Close() error {
	err1 := p.r1.Close()
	err2 := p.r2.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Writer is a FASTQ record sink. The output codec is chosen by extension:
// .gz writes parallel gzip, .zst writes zstd, anything else plain text.
type Writer struct {
	f io.WriteCloser
	c io.WriteCloser
	w *bufio.Writer
}

func NewWriter(name string) (*Writer, error) {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.KindSink, err, "failed to create output directory")
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(errors.KindSink, perrors.Wrapf(err, "create %s", name), "failed to create output")
	}
	w := &Writer{f: f}
	switch {
	case strings.HasSuffix(name, ".gz"):
		w.c = pgzip.NewWriter(f)
		w.w = bufio.NewWriter(w.c)
	case strings.HasSuffix(name, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(errors.KindSink, err, "failed to create zstd writer")
		}
		w.c = zw
		w.w = bufio.NewWriter(w.c)
	default:
		w.w = bufio.NewWriter(f)
	}
	return w, nil
}

func (w *Writer) writeRecord(rec *record.Record) error {
	if err := w.w.WriteByte('@'); err != nil {
		return err
	}
	if _, err := w.w.Write(rec.ID); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.w.Write(rec.Seq); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.WriteByte('+'); err != nil {
		return err
	}
	if _, err := w.w.Write(rec.Sep); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.w.Write(rec.Qual); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Write emits the batch in canonical four line form.
func (w *Writer) Write(b *record.Batch) error {
	for i := range b.Reads {
		if err := w.writeRecord(&b.Reads[i]); err != nil {
			return errors.Wrap(errors.KindSink, err, "failed to write record")
		}
	}
	return nil
}

func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.KindSink, err, "failed to flush output")
	}
	if w.c != nil {
		if err := w.c.Close(); err != nil {
			return errors.Wrap(errors.KindSink, err, "failed to close compressor")
		}
	}
	if err := w.f.Close(); err != nil {
		return errors.Wrap(errors.KindSink, err, "failed to close output")
	}
	return nil
}

// PairedWriter routes each batch vector to its own output.
type PairedWriter struct {
	w1, w2 *Writer
}

func NewPairedWriter(name1, name2 string) (*PairedWriter, error) {
	w1, err := NewWriter(name1)
	if err != nil {
		return nil, err
	}
	w2, err := NewWriter(name2)
	if err != nil {
		w1.Close()
		return nil, err
	}
	return &PairedWriter{w1: w1, w2: w2}, nil
}

func (p *PairedWriter) Write(b *record.Batch) error {
	for i := range b.Reads {
		if err := p.w1.writeRecord(&b.Reads[i]); err != nil {
			return errors.Wrap(errors.KindSink, err, "failed to write record")
		}
		if err := p.w2.writeRecord(&b.Mates[i]); err != nil {
			return errors.Wrap(errors.KindSink, err, "failed to write mate record")
		}
	}
	return nil
}

func (p *PairedWriter) Close() error {
	err1 := p.w1.Close()
	err2 := p.w2.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
