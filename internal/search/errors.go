package search

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two search paths. Only ErrFallbackFailure ever reaches
// callers of Service.Search.
var (
	ErrEngineUnavailable = errors.New("search: engine unavailable")
	ErrEngineTimeout     = errors.New("search: engine timeout")
	ErrEngineProtocol    = errors.New("search: engine protocol error")
	ErrFallbackFailure   = errors.New("search: fallback failed")
)

// EngineError is a classified primary-path failure.
type EngineError struct {
	Kind error
	Op   string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *EngineError) Unwrap() []error { return []error{e.Kind, e.Err} }

// FallbackError is returned when the primary path and the fallback both failed.
// It carries no engine internals in its message.
type FallbackError struct {
	Primary error
	Err     error
}

func (e *FallbackError) Error() string {
	return ErrFallbackFailure.Error()
}

// Unwrap exposes ErrFallbackFailure and the fallback cause to errors.Is.
func (e *FallbackError) Unwrap() []error { return []error{ErrFallbackFailure, e.Err} }

// KindLabel returns a short label for a primary-path error, used for metrics and logs.
func KindLabel(err error) string {
	switch {
	case errors.Is(err, ErrEngineTimeout):
		return "timeout"
	case errors.Is(err, ErrEngineUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEngineProtocol):
		return "protocol"
	default:
		return "unknown"
	}
}
