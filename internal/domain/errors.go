package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrProviderUnconfigured  = errors.New("provider unconfigured")
	ErrProviderQuotaExceeded = errors.New("provider quota exceeded")
	ErrProviderTransport     = errors.New("provider transport error")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrMalformedScript       = errors.New("malformed script")
	ErrMalformedResponse     = errors.New("malformed provider response")
	ErrInvalidScript         = errors.New("invalid script")
	ErrScenesCountMismatch   = errors.New("scenes count mismatch")
	ErrSubtitleCountMismatch = errors.New("subtitle count mismatch")
	ErrAudioLoad             = errors.New("audio load error")
	ErrSceneNotReady         = errors.New("scene not render-ready")
)

// ProviderErrorKind classifies a failed backend attempt.
type ProviderErrorKind string

const (
	ProviderUnconfigured  ProviderErrorKind = "unconfigured"
	ProviderQuotaExceeded ProviderErrorKind = "quota_exceeded"
	ProviderTransport     ProviderErrorKind = "transport"
)

func (k ProviderErrorKind) sentinel() error {
	switch k {
	case ProviderUnconfigured:
		return ErrProviderUnconfigured
	case ProviderQuotaExceeded:
		return ErrProviderQuotaExceeded
	default:
		return ErrProviderTransport
	}
}

// ProviderError describes a recoverable failure of a single backend.
type ProviderError struct {
	Provider   string
	Capability Capability
	Kind       ProviderErrorKind
	Status     int
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Provider, e.Capability, e.Kind)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRecoverable reports whether err should move a call on to the next backend.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProviderUnconfigured) ||
		errors.Is(err, ErrProviderQuotaExceeded) ||
		errors.Is(err, ErrProviderTransport)
}

// ExhaustedError is returned once every backend of a capability failed recoverably.
type ExhaustedError struct {
	Capability Capability
	Attempts   []error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %s", e.Capability, ErrAllProvidersExhausted)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.Capability, ErrAllProvidersExhausted, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() error { return ErrAllProvidersExhausted }

// StageError reports which pipeline stage halted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
