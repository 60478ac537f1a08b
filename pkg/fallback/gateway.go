package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CallFunc dispatches a request to one concrete provider.
type CallFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Outcome is a successful gateway call with the role that served it.
type Outcome[Resp any] struct {
	Resp Resp
	Role Role
}

// BothFailedError is returned when the selected provider and its alternate
// both fail within one call. It is fatal for the capability this turn.
type BothFailedError struct {
	Capability  Capability
	PrimaryErr  error
	FallbackErr error
}

// Error implements the error interface.
func (e *BothFailedError) Error() string {
	return fmt.Sprintf("fallback: both %s providers failed: primary: %v; fallback: %v",
		e.Capability, e.PrimaryErr, e.FallbackErr)
}

// Unwrap returns the primary provider's error.
func (e *BothFailedError) Unwrap() error {
	return e.PrimaryErr
}

// Gateway wraps a capability's primary and fallback providers behind one
// call. Every dispatch consults the Manager for provider selection, applies
// the per-call timeout, and reports the outcome back. At most one switch to
// the alternate provider happens per call; there is no retry loop.
type Gateway[Req, Resp any] struct {
	capability Capability
	manager    *Manager
	primary    CallFunc[Req, Resp]
	fallback   CallFunc[Req, Resp]
	timeout    time.Duration
	logger     *slog.Logger
}

// NewGateway creates a gateway for one capability.
func NewGateway[Req, Resp any](
	capability Capability,
	manager *Manager,
	primary, fallback CallFunc[Req, Resp],
	timeout time.Duration,
	logger *slog.Logger,
) *Gateway[Req, Resp] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway[Req, Resp]{
		capability: capability,
		manager:    manager,
		primary:    primary,
		fallback:   fallback,
		timeout:    timeout,
		logger:     logger.With("component", "fallback.gateway", "capability", capability),
	}
}

// Call dispatches the request. The first provider is whichever the Manager
// selects; on failure the alternate gets exactly one attempt. Both failing
// yields a BothFailedError. A cancelled parent context stops the call
// without touching the alternate.
func (g *Gateway[Req, Resp]) Call(ctx context.Context, req Req) (*Outcome[Resp], error) {
	first := g.manager.Select(g.capability)

	resp, firstErr := g.dispatch(ctx, first, req)
	if firstErr == nil {
		return &Outcome[Resp]{Resp: resp, Role: first}, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	second := first.other()
	g.logger.Warn("provider failed, switching",
		"from", first,
		"to", second,
		"error", firstErr,
	)

	resp, secondErr := g.dispatch(ctx, second, req)
	if secondErr == nil {
		return &Outcome[Resp]{Resp: resp, Role: second}, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	primaryErr, fallbackErr := firstErr, secondErr
	if first == Fallback {
		primaryErr, fallbackErr = secondErr, firstErr
	}
	return nil, &BothFailedError{
		Capability:  g.capability,
		PrimaryErr:  primaryErr,
		FallbackErr: fallbackErr,
	}
}

// dispatch runs one provider call under the gateway timeout and reports
// the outcome to the Manager. Timeouts count as provider failures.
func (g *Gateway[Req, Resp]) dispatch(ctx context.Context, role Role, req Req) (Resp, error) {
	fn := g.primary
	if role == Fallback {
		fn = g.fallback
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := fn(callCtx, req)

	// A cancelled parent is not the provider's fault; don't count it, but
	// give back any probe slot Select granted for this call.
	if err != nil && ctx.Err() != nil {
		g.manager.Release(g.capability, role)
		return resp, err
	}
	g.manager.Report(g.capability, role, err)
	return resp, err
}
