// Package filter fixes the per-record predicate and mutator contracts and
// their composition rules.
package filter

import (
	"github.com/MG-RAST/Sieve/sieve/record"
)

// Predicate decides whether a record is kept. Evaluate must not mutate the
// record and must be safe to call from many workers on distinct records;
// internal counters use atomic operations.
type Predicate interface {
	Evaluate(r *record.Record) bool
	Name() string
}

// Mutator rewrites a record in place. Apply may shrink, lengthen or rewrite
// sequence and quality but must leave them the same length. A returned error
// drops the record without aborting the run.
type Mutator interface {
	Apply(r *record.Record) error
	Name() string
}

// Pass evaluates predicates as a short-circuit conjunction in list order.
func Pass(predicates []Predicate, r *record.Record) bool {
	for _, p := range predicates {
		if !p.Evaluate(r) {
			return false
		}
	}
	return true
}

// Mutate applies mutators in list order; a later mutator sees the output of
// earlier ones. The first error stops the chain.
func Mutate(mutators []Mutator, r *record.Record) error {
	for _, m := range mutators {
		if err := m.Apply(r); err != nil {
			return err
		}
	}
	return nil
}
