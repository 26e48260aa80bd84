package fastq_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
	. "github.com/MG-RAST/Sieve/sieve/stream/fastq"
)

const fourReads = "@r1\nACGT\n+\nIIII\n@r2\nACGTACGT\n+\nIIIIIIII\n@r3\nA\n+\nI\n@r4\nTTTT\n+\n!!!!\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeGzFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReaderFill(t *testing.T) {
	r, err := NewReader(writeFile(t, "in.fq", fourReads))
	require.NoError(t, err)
	defer r.Close()

	b := record.NewBatch(10)
	n, err := r.Fill(b, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "r1", string(b.Reads[0].ID))
	assert.Equal(t, "ACGT", string(b.Reads[0].Seq))
	assert.Equal(t, "IIII", string(b.Reads[0].Qual))
	assert.Equal(t, "!!!!", string(b.Reads[3].Qual))
	assert.Greater(t, r.BytesRead(), int64(0))

	n, err = r.Fill(b, 10)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestReaderFillBatchCap(t *testing.T) {
	r, err := NewReader(writeFile(t, "in.fq", fourReads))
	require.NoError(t, err)
	defer r.Close()

	b := record.NewBatch(3)
	n, err := r.Fill(b, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	b2 := record.NewBatch(3)
	n, err = r.Fill(b2, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Fill(b2, 3)
	assert.Equal(t, io.EOF, err)
}

func TestReaderGzip(t *testing.T) {
	r, err := NewReader(writeGzFile(t, "in.fq.gz", fourReads))
	require.NoError(t, err)
	defer r.Close()

	b := record.NewBatch(10)
	n, err := r.Fill(b, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestReaderRejectsBadFraming(t *testing.T) {
	r, err := NewReader(writeFile(t, "bad.fq", "r1\nACGT\n+\nIIII\n"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fill(record.NewBatch(1), 1)
	assert.True(t, errors.IsKind(err, errors.KindSource))
}

func TestReaderRejectsLengthMismatch(t *testing.T) {
	r, err := NewReader(writeFile(t, "bad.fq", "@r1\nACGT\n+\nIII\n"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fill(record.NewBatch(1), 1)
	assert.True(t, errors.IsKind(err, errors.KindSource))
}

func TestWriterRoundTrip(t *testing.T) {
	in := writeFile(t, "in.fq", fourReads)
	out := filepath.Join(t.TempDir(), "out.fq")

	r, err := NewReader(in)
	require.NoError(t, err)
	b := record.NewBatch(10)
	_, err = r.Fill(b, 10)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	w, err := NewWriter(out)
	require.NoError(t, err)
	require.NoError(t, w.Write(b))
	require.NoError(t, w.Close())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fourReads, string(got))
}

func TestWriterGzipRoundTrip(t *testing.T) {
	in := writeFile(t, "in.fq", fourReads)
	out := filepath.Join(t.TempDir(), "out.fq.gz")

	r, err := NewReader(in)
	require.NoError(t, err)
	b := record.NewBatch(10)
	_, err = r.Fill(b, 10)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	w, err := NewWriter(out)
	require.NoError(t, err)
	require.NoError(t, w.Write(b))
	require.NoError(t, w.Close())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	zr, err := pgzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, fourReads, string(got))
}

func TestPairedReaderLockstep(t *testing.T) {
	p1 := writeFile(t, "r1.fq", "@a/1\nAC\n+\nII\n@b/1\nGT\n+\nII\n")
	p2 := writeFile(t, "r2.fq", "@a/2\nTT\n+\nII\n@b/2\nCC\n+\nII\n")

	r, err := NewPairedReader(p1, p2)
	require.NoError(t, err)
	defer r.Close()

	b := record.NewBatch(10)
	n, err := r.Fill(b, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.True(t, b.Paired())
	assert.Equal(t, "a/1", string(b.Reads[0].ID))
	assert.Equal(t, "a/2", string(b.Mates[0].ID))
	assert.Equal(t, "b/2", string(b.Mates[1].ID))

	_, err = r.Fill(b, 10)
	assert.Equal(t, io.EOF, err)
}

func TestPairedReaderDesync(t *testing.T) {
	p1 := writeFile(t, "r1.fq", "@a/1\nAC\n+\nII\n@b/1\nGT\n+\nII\n")
	p2 := writeFile(t, "r2.fq", "@a/2\nTT\n+\nII\n")

	r, err := NewPairedReader(p1, p2)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fill(record.NewBatch(10), 10)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSource))
}
