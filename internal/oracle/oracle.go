// Package oracle models the language-model text-completion service as an
// opaque capability: a prompt goes in, text comes out.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOracleUnavailable is returned when the completion service cannot be
	// reached or rejects the request. Callers may retry.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleTimeout is returned when a completion call exceeds its deadline.
	ErrOracleTimeout = errors.New("oracle timeout")
)

// systemPrompt keeps completions terse; every caller parses the output.
const systemPrompt = "You are a precise knowledge-graph assistant. Follow the output format exactly and output nothing else."

// Oracle completes prompts. Implementations run at temperature 0 so identical
// prompts are expected to yield stable output.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// classify maps a transport error onto the oracle error taxonomy. callCtx is
// the context the request ran under.
func classify(callCtx context.Context, provider string, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", provider, ErrOracleTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrOracleUnavailable, err)
}
