package filter

import (
	"sync/atomic"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
)

// MinQuality keeps records whose mean phred score reaches a threshold.
type MinQuality struct {
	min       float64
	offset    int
	evaluated uint64
	passed    uint64
}

func NewMinQuality(min float64, offset int) (*MinQuality, error) {
	if min < 0 || min > conf.MaxPhredScore {
		return nil, errors.Newf(errors.KindConfig, "min quality must be between 0 and %d", conf.MaxPhredScore)
	}
	if offset != conf.PhredSanger && offset != conf.PhredIllumina13 {
		return nil, errors.New(errors.KindConfig, "phred offset must be 33 or 64")
	}
	return &MinQuality{min: min, offset: offset}, nil
}

func (p *MinQuality) Evaluate(r *record.Record) bool {
	atomic.AddUint64(&p.evaluated, 1)
	if r.Len() == 0 {
		return false
	}
	sum := 0
	for _, q := range r.Qual {
		sum += int(q) - p.offset
	}
	if float64(sum)/float64(r.Len()) < p.min {
		return false
	}
	atomic.AddUint64(&p.passed, 1)
	return true
}

func (p *MinQuality) Name() string {
	return "min-quality"
}

// Counts reports evaluated and passed totals.
func (p *MinQuality) Counts() (evaluated, passed uint64) {
	return atomic.LoadUint64(&p.evaluated), atomic.LoadUint64(&p.passed)
}

// MinLength keeps records of at least a minimum length.
type MinLength struct {
	min       int
	evaluated uint64
	passed    uint64
}

func NewMinLength(min int) *MinLength {
	return &MinLength{min: min}
}

func (p *MinLength) Evaluate(r *record.Record) bool {
	atomic.AddUint64(&p.evaluated, 1)
	if r.Len() < p.min {
		return false
	}
	atomic.AddUint64(&p.passed, 1)
	return true
}

func (p *MinLength) Name() string {
	return "min-length"
}

// MaxLength keeps records of at most a maximum length.
type MaxLength struct {
	max       int
	evaluated uint64
	passed    uint64
}

func NewMaxLength(max int) *MaxLength {
	return &MaxLength{max: max}
}

func (p *MaxLength) Evaluate(r *record.Record) bool {
	atomic.AddUint64(&p.evaluated, 1)
	if r.Len() > p.max {
		return false
	}
	atomic.AddUint64(&p.passed, 1)
	return true
}

func (p *MaxLength) Name() string {
	return "max-length"
}

// MaxNRatio keeps records whose fraction of N bases stays at or below a bound.
type MaxNRatio struct {
	max       float64
	evaluated uint64
	passed    uint64
}

func NewMaxNRatio(max float64) (*MaxNRatio, error) {
	if max < 0 || max > 1 {
		return nil, errors.New(errors.KindConfig, "max N ratio must be between 0.0 and 1.0")
	}
	return &MaxNRatio{max: max}, nil
}

func (p *MaxNRatio) Evaluate(r *record.Record) bool {
	atomic.AddUint64(&p.evaluated, 1)
	if r.Len() == 0 {
		atomic.AddUint64(&p.passed, 1)
		return true
	}
	n := 0
	for _, c := range r.Seq {
		if c == 'N' || c == 'n' {
			n++
		}
	}
	if float64(n)/float64(r.Len()) > p.max {
		return false
	}
	atomic.AddUint64(&p.passed, 1)
	return true
}

func (p *MaxNRatio) Name() string {
	return "max-n-ratio"
}
