package sampler

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks sampling parameters that can never produce a point.
	ErrConfiguration = errors.New("invalid sampler configuration")
	// ErrSamplingExhausted is returned when a bounded sampler hits MaxAttempts.
	ErrSamplingExhausted = errors.New("sampling attempts exhausted")
)

// SamplerError wraps deterministic sampler failures.
type SamplerError struct {
	Kind error
	Msg  string
}

func (e *SamplerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *SamplerError) Unwrap() error { return e.Kind }

func configf(format string, args ...any) error {
	return &SamplerError{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func exhausted(attempts int) error {
	return &SamplerError{Kind: ErrSamplingExhausted, Msg: fmt.Sprintf("no point accepted after %d attempts", attempts)}
}
