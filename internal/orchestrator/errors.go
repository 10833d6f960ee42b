package orchestrator

import (
	"errors"
)

// Kind is the machine-readable class of a pipeline failure.
type Kind string

const (
	KindInvalidTarget       Kind = "invalid_target"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindSynthesisMalformed  Kind = "synthesis_malformed"
	KindCanceled            Kind = "canceled"
)

var (
	ErrInvalidTarget    = errors.New("invalid target")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNoSignals means every category came back empty and synthesis
	// failed too, so there is nothing to return.
	ErrNoSignals = errors.New("no signals collected and synthesis failed")
)

// Error is a pipeline-level failure. Category-level failures never surface
// as an Error; they are warnings on a degraded result.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
