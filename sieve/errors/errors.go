// Package errors contains the error kinds and shared error values the engine
// reports. Stages never print; they return one kind-tagged error and the
// caller decides how to log it.
package errors

import (
	"errors"
	"fmt"
)

// Kind tags the failure class carried by an EngineError.
type Kind string

const (
	KindConfig      Kind = "ConfigError"
	KindSource      Kind = "SourceError"
	KindSink        Kind = "SinkError"
	KindMutator     Kind = "MutatorError"
	KindPool        Kind = "PoolShuttingDown"
	KindReadLength  Kind = "VariableReadLength"
	KindWorkerSpawn Kind = "WorkerSpawnError"
	KindWorkerPanic Kind = "WorkerPanic"
)

var (
	// ErrPoolShutdown is returned by a pool acquire that was waiting when the
	// pool shut down. The parse stage treats it as a cooperative end of stream.
	ErrPoolShutdown = New(KindPool, "batch pool is shutting down")

	// ErrVariableReadLength is returned by the statistics pipeline when the
	// input does not have a fixed read length.
	ErrVariableReadLength = New(KindReadLength, "statistics require a fixed read length")
)

// EngineError is the single structured error shape returned by a run.
type EngineError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause. A cause that already carries a
// kind is passed through unchanged so the first classification wins.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind tag, or "" for untagged errors.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
