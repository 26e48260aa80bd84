// Package record contains the in-memory FASTQ record and batch types shared
// by the processing and statistics pipelines.
package record

import (
	"errors"
)

var (
	ErrEmptyID       = errors.New("record id is empty")
	ErrLengthDiverge = errors.New("length of sequence and quality lines do not match")
)

// Record is one FASTQ entry. Seq and Qual are always the same length; use
// SetBases to replace them together.
type Record struct {
	ID   []byte
	Seq  []byte
	Sep  []byte
	Qual []byte
}

// New builds a record from the four FASTQ line bodies.
func New(id, seq, sep, qual []byte) (Record, error) {
	if len(id) == 0 {
		return Record{}, ErrEmptyID
	}
	if len(seq) != len(qual) {
		return Record{}, ErrLengthDiverge
	}
	return Record{ID: id, Seq: seq, Sep: sep, Qual: qual}, nil
}

// SetBases replaces sequence and quality together. Divergent lengths are
// rejected so the record invariant survives any mutator chain.
func (r *Record) SetBases(seq, qual []byte) error {
	if len(seq) != len(qual) {
		return ErrLengthDiverge
	}
	r.Seq = seq
	r.Qual = qual
	return nil
}

func (r *Record) Len() int {
	return len(r.Seq)
}

func (r *Record) Empty() bool {
	return len(r.Seq) == 0
}

// Batch is an ordered run of records tagged with the id assigned by the parse
// stage. In paired mode Mates holds the second vector; Reads[i] and Mates[i]
// are the corresponding pair.
type Batch struct {
	ID    uint64
	Reads []Record
	Mates []Record
}

func NewBatch(size int) *Batch {
	return &Batch{Reads: make([]Record, 0, size)}
}

func (b *Batch) Append(r Record) {
	b.Reads = append(b.Reads, r)
}

// AppendPair appends mates at the same position of both vectors.
func (b *Batch) AppendPair(r1, r2 Record) {
	b.Reads = append(b.Reads, r1)
	if b.Mates == nil {
		b.Mates = make([]Record, 0, cap(b.Reads))
	}
	b.Mates = append(b.Mates, r2)
}

func (b *Batch) Len() int {
	return len(b.Reads)
}

func (b *Batch) Paired() bool {
	return b.Mates != nil
}

// Clear resets the batch for reuse. Backing storage is retained so a recycled
// batch appends without allocating.
func (b *Batch) Clear() {
	b.ID = 0
	b.Reads = b.Reads[:0]
	if b.Mates != nil {
		b.Mates = b.Mates[:0]
	}
}

// IsACGT reports whether every byte of s is one of A, C, G or T.
func IsACGT(s []byte) bool {
	for _, c := range s {
		switch c {
		case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		default:
			return false
		}
	}
	return true
}

// IsACGTN reports whether every byte of s is one of A, C, G, T or N.
func IsACGTN(s []byte) bool {
	for _, c := range s {
		switch c {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return false
		}
	}
	return true
}

// ValidPhred reports whether every quality byte decodes to a sane phred score
// under the given offset.
func ValidPhred(qual []byte, offset int) bool {
	for _, q := range qual {
		score := int(q) - offset
		if score < 0 || score > 93 {
			return false
		}
	}
	return true
}
