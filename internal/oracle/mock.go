package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mock is a scripted Oracle for tests. Rules are evaluated in registration
// order; the first rule whose substring appears in the prompt answers it.
type Mock struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback *mockRule
	calls    []string
}

type mockRule struct {
	contains string
	fn       func(ctx context.Context, prompt string) (string, error)
}

// NewMock returns a Mock with no rules. Unmatched prompts fail with
// ErrOracleUnavailable until a fallback is set.
func NewMock() *Mock {
	return &Mock{}
}

// On answers prompts containing substr with response.
func (m *Mock) On(substr, response string) *Mock {
	return m.OnFunc(substr, func(context.Context, string) (string, error) { return response, nil })
}

// OnError fails prompts containing substr with err.
func (m *Mock) OnError(substr string, err error) *Mock {
	return m.OnFunc(substr, func(context.Context, string) (string, error) { return "", err })
}

// OnFunc answers prompts containing substr by calling fn.
func (m *Mock) OnFunc(substr string, fn func(ctx context.Context, prompt string) (string, error)) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, fn: fn})
	return m
}

// Fallback answers every prompt no rule matched with response.
func (m *Mock) Fallback(response string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &mockRule{fn: func(context.Context, string) (string, error) { return response, nil }}
	return m
}

// Complete records the prompt and answers it from the first matching rule.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	var fn func(context.Context, string) (string, error)
	for i := range m.rules {
		if strings.Contains(prompt, m.rules[i].contains) {
			fn = m.rules[i].fn
			break
		}
	}
	if fn == nil && m.fallback != nil {
		fn = m.fallback.fn
	}
	m.mu.Unlock()

	if fn == nil {
		return "", fmt.Errorf("mock: %w: no scripted response", ErrOracleUnavailable)
	}
	return fn(ctx, prompt)
}

// Calls returns a copy of every prompt received so far.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many prompts were received.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
