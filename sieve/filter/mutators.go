package filter

import (
	"sync/atomic"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
)

// TrimMode selects which end of a read a quality trimmer works on.
type TrimMode int

const (
	TrimBoth TrimMode = iota
	TrimFivePrime
	TrimThreePrime
)

func ParseTrimMode(s string) (TrimMode, error) {
	switch s {
	case "both", "":
		return TrimBoth, nil
	case "five", "5":
		return TrimFivePrime, nil
	case "three", "3":
		return TrimThreePrime, nil
	}
	return TrimBoth, errors.Newf(errors.KindConfig, "unknown trim mode %q", s)
}

// QualityTrimmer removes low quality bases from the read ends. A read trimmed
// below its minimum surviving length is reported as a mutator error and
// dropped by the engine.
type QualityTrimmer struct {
	threshold float64
	minLength int
	mode      TrimMode
	offset    int
	trimmed   uint64
	removed   uint64
}

func NewQualityTrimmer(threshold float64, minLength int, mode TrimMode, offset int) (*QualityTrimmer, error) {
	if threshold < 0 || threshold > conf.MaxPhredScore {
		return nil, errors.Newf(errors.KindConfig, "trim quality must be between 0 and %d", conf.MaxPhredScore)
	}
	if offset != conf.PhredSanger && offset != conf.PhredIllumina13 {
		return nil, errors.New(errors.KindConfig, "phred offset must be 33 or 64")
	}
	return &QualityTrimmer{threshold: threshold, minLength: minLength, mode: mode, offset: offset}, nil
}

func (m *QualityTrimmer) Apply(r *record.Record) error {
	if r.Len() == 0 {
		return nil
	}

	start := 0
	end := r.Len()
	if m.mode == TrimBoth || m.mode == TrimFivePrime {
		for start < end && float64(int(r.Qual[start])-m.offset) < m.threshold {
			start++
		}
	}
	if m.mode == TrimBoth || m.mode == TrimThreePrime {
		for end > start && float64(int(r.Qual[end-1])-m.offset) < m.threshold {
			end--
		}
	}

	if end-start < m.minLength {
		return errors.Newf(errors.KindMutator, "read %q shorter than %d after quality trim", r.ID, m.minLength)
	}
	if start == 0 && end == r.Len() {
		return nil
	}
	original := r.Len()
	if err := r.SetBases(r.Seq[start:end], r.Qual[start:end]); err != nil {
		return errors.Wrap(errors.KindMutator, err, "quality trim")
	}
	atomic.AddUint64(&m.trimmed, 1)
	atomic.AddUint64(&m.removed, uint64(original-(end-start)))
	return nil
}

func (m *QualityTrimmer) Name() string {
	return "quality-trim"
}

// FixedTrimmer removes a fixed number of bases from one end.
type FixedTrimmer struct {
	n        int
	fromHead bool
}

// NewHeadTrimmer trims n bases from the 5' end.
func NewHeadTrimmer(n int) *FixedTrimmer {
	return &FixedTrimmer{n: n, fromHead: true}
}

// NewTailTrimmer trims n bases from the 3' end.
func NewTailTrimmer(n int) *FixedTrimmer {
	return &FixedTrimmer{n: n}
}

func (m *FixedTrimmer) Apply(r *record.Record) error {
	if m.n <= 0 {
		return nil
	}
	if r.Len() <= m.n {
		return errors.Newf(errors.KindMutator, "read %q shorter than fixed trim of %d", r.ID, m.n)
	}
	if m.fromHead {
		return r.SetBases(r.Seq[m.n:], r.Qual[m.n:])
	}
	return r.SetBases(r.Seq[:r.Len()-m.n], r.Qual[:r.Len()-m.n])
}

func (m *FixedTrimmer) Name() string {
	if m.fromHead {
		return "trim-head"
	}
	return "trim-tail"
}
