// Package fallback runs a capability call against an ordered list of backends,
// moving to the next backend only when a failure is recoverable.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

// Backend is one provider able to serve a capability.
type Backend[Req, Resp any] struct {
	Name       string
	Configured func() bool
	Call       func(ctx context.Context, req Req) (Resp, error)
}

// Options tunes chain behaviour. All fields are optional.
type Options struct {
	Logger      *infra.Logger
	OnFallback  func(provider string, err error)
	Recoverable func(error) bool
}

// Chain is declared once per capability and never modified afterwards.
type Chain[Req, Resp any] struct {
	capability  domain.Capability
	backends    []Backend[Req, Resp]
	logger      *infra.Logger
	onFallback  func(provider string, err error)
	recoverable func(error) bool
}

// NewChain builds a chain that tries backends in the given priority order.
func NewChain[Req, Resp any](capability domain.Capability, backends []Backend[Req, Resp], opts Options) *Chain[Req, Resp] {
	recoverable := opts.Recoverable
	if recoverable == nil {
		recoverable = domain.IsRecoverable
	}
	list := make([]Backend[Req, Resp], len(backends))
	copy(list, backends)
	return &Chain[Req, Resp]{
		capability:  capability,
		backends:    list,
		logger:      infra.LoggerOrDiscard(opts.Logger),
		onFallback:  opts.OnFallback,
		recoverable: recoverable,
	}
}

// Capability returns the capability served by the chain.
func (c *Chain[Req, Resp]) Capability() domain.Capability {
	return c.capability
}

// Configured reports whether at least one backend has credentials.
func (c *Chain[Req, Resp]) Configured() bool {
	for _, b := range c.backends {
		if b.configured() {
			return true
		}
	}
	return false
}

// Call returns the first well-formed response. Each backend is attempted at most once.
func (c *Chain[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	attempts := make([]error, 0, len(c.backends))
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if !b.configured() {
			err := &domain.ProviderError{Provider: b.Name, Capability: c.capability, Kind: domain.ProviderUnconfigured}
			attempts = append(attempts, err)
			c.useFallback(b.Name, err)
			continue
		}
		resp, err := b.Call(ctx, req)
		if err == nil {
			c.logger.Debug().Str("capability", string(c.capability)).Str("provider", b.Name).Msg("fallback: call succeeded")
			return resp, nil
		}
		// Caller cancellation aborts the run instead of moving on.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return zero, err
		}
		if !c.recoverable(err) {
			return zero, fmt.Errorf("%s %s: %w", b.Name, c.capability, err)
		}
		attempts = append(attempts, err)
		c.useFallback(b.Name, err)
	}
	return zero, &domain.ExhaustedError{Capability: c.capability, Attempts: attempts}
}

func (c *Chain[Req, Resp]) useFallback(provider string, err error) {
	c.logger.Warn().
		Err(err).
		Str("capability", string(c.capability)).
		Str("provider", provider).
		Msg("fallback: provider failed, trying next")
	if c.onFallback != nil {
		c.onFallback(provider, err)
	}
}

func (b Backend[Req, Resp]) configured() bool {
	if b.Call == nil {
		return false
	}
	return b.Configured == nil || b.Configured()
}
