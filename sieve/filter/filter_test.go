package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MG-RAST/Sieve/sieve/errors"
	. "github.com/MG-RAST/Sieve/sieve/filter"
	"github.com/MG-RAST/Sieve/sieve/record"
)

func rec(t *testing.T, seq, qual string) record.Record {
	t.Helper()
	r, err := record.New([]byte("r"), []byte(seq), nil, []byte(qual))
	require.NoError(t, err)
	return r
}

func TestMinQuality(t *testing.T) {
	p, err := NewMinQuality(30, 33)
	require.NoError(t, err)

	high := rec(t, "ACGT", "IIII") // phred 40
	low := rec(t, "TTTT", "!!!!")  // phred 0
	assert.True(t, p.Evaluate(&high))
	assert.False(t, p.Evaluate(&low))

	evaluated, passed := p.Counts()
	assert.Equal(t, uint64(2), evaluated)
	assert.Equal(t, uint64(1), passed)
}

func TestMinQualityValidation(t *testing.T) {
	_, err := NewMinQuality(-1, 33)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	_, err = NewMinQuality(30, 40)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestLengthPredicates(t *testing.T) {
	short := rec(t, "A", "I")
	long := rec(t, "ACGTACGT", "IIIIIIII")

	min := NewMinLength(4)
	assert.False(t, min.Evaluate(&short))
	assert.True(t, min.Evaluate(&long))

	max := NewMaxLength(4)
	assert.True(t, max.Evaluate(&short))
	assert.False(t, max.Evaluate(&long))
}

func TestMaxNRatio(t *testing.T) {
	p, err := NewMaxNRatio(0.25)
	require.NoError(t, err)

	ok := rec(t, "ACGN", "IIII")
	bad := rec(t, "ANNN", "IIII")
	assert.True(t, p.Evaluate(&ok))
	assert.False(t, p.Evaluate(&bad))
}

func TestPassShortCircuits(t *testing.T) {
	minLen := NewMinLength(4)
	minQ, err := NewMinQuality(30, 33)
	require.NoError(t, err)

	short := rec(t, "A", "I")
	assert.False(t, Pass([]Predicate{minLen, minQ}, &short))
	evaluated, _ := minQ.Counts()
	assert.Equal(t, uint64(0), evaluated, "second predicate must not run after the first rejects")
}

func TestQualityTrimmerBothEnds(t *testing.T) {
	m, err := NewQualityTrimmer(20, 1, TrimBoth, 33)
	require.NoError(t, err)

	// '!' is phred 0, 'I' is phred 40
	r := rec(t, "AACGTT", "!!II!!")
	require.NoError(t, m.Apply(&r))
	assert.Equal(t, "CG", string(r.Seq))
	assert.Equal(t, "II", string(r.Qual))
}

func TestQualityTrimmerModes(t *testing.T) {
	five, err := NewQualityTrimmer(20, 1, TrimFivePrime, 33)
	require.NoError(t, err)
	r := rec(t, "AACGTT", "!!II!!")
	require.NoError(t, five.Apply(&r))
	assert.Equal(t, "CGTT", string(r.Seq))

	three, err := NewQualityTrimmer(20, 1, TrimThreePrime, 33)
	require.NoError(t, err)
	r = rec(t, "AACGTT", "!!II!!")
	require.NoError(t, three.Apply(&r))
	assert.Equal(t, "AACG", string(r.Seq))
}

func TestQualityTrimmerTooShort(t *testing.T) {
	m, err := NewQualityTrimmer(20, 4, TrimBoth, 33)
	require.NoError(t, err)

	r := rec(t, "AACGTT", "!!II!!")
	err = m.Apply(&r)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindMutator))
}

func TestFixedTrimmers(t *testing.T) {
	r := rec(t, "ACGTACGT", "IIIIIIII")
	require.NoError(t, NewTailTrimmer(2).Apply(&r))
	assert.Equal(t, "ACGTAC", string(r.Seq))
	assert.Equal(t, "IIIIII", string(r.Qual))

	require.NoError(t, NewHeadTrimmer(2).Apply(&r))
	assert.Equal(t, "GTAC", string(r.Seq))

	err := NewTailTrimmer(10).Apply(&r)
	assert.True(t, errors.IsKind(err, errors.KindMutator))
}

func TestMutateStopsOnError(t *testing.T) {
	r := rec(t, "ACGT", "IIII")
	err := Mutate([]Mutator{NewTailTrimmer(10), NewTailTrimmer(1)}, &r)
	require.Error(t, err)
	assert.Equal(t, 4, r.Len(), "chain must stop at the failing mutator")
}

func TestParseTrimMode(t *testing.T) {
	for s, want := range map[string]TrimMode{"both": TrimBoth, "five": TrimFivePrime, "3": TrimThreePrime} {
		got, err := ParseTrimMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTrimMode("middle")
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
