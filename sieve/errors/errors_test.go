package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/MG-RAST/Sieve/sieve/errors"
)

func TestKindTagging(t *testing.T) {
	err := New(KindConfig, "batch size must be >= 1")
	assert.True(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(err, KindSource))
	assert.Equal(t, "ConfigError: batch size must be >= 1", err.Error())
}

func TestWrapKeepsFirstKind(t *testing.T) {
	cause := fmt.Errorf("disk went away")
	err := Wrap(KindSource, cause, "source fill failed")
	assert.True(t, IsKind(err, KindSource))

	// re-wrapping must not reclassify
	again := Wrap(KindSink, err, "later context")
	assert.True(t, IsKind(again, KindSource))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindSink, nil, "nothing"))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}

func TestSharedValues(t *testing.T) {
	assert.True(t, IsKind(ErrPoolShutdown, KindPool))
	assert.True(t, IsKind(ErrVariableReadLength, KindReadLength))
}
