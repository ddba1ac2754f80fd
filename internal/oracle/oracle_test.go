package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMock_FirstMatchingRuleWins(t *testing.T) {
	m := NewMock().
		On("alpha", "first").
		On("alpha beta", "second")

	got, err := m.Complete(context.Background(), "alpha beta gamma")
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	assert.Equal(t, 1, m.CallCount())
}

func TestMock_UnmatchedPromptIsUnavailable(t *testing.T) {
	m := NewMock()
	_, err := m.Complete(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestMock_Fallback(t *testing.T) {
	m := NewMock().Fallback("NONE")
	got, err := m.Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "NONE", got)
}

func TestFunc_Adapter(t *testing.T) {
	var o Oracle = Func(func(_ context.Context, p string) (string, error) {
		return strings.ToUpper(p), nil
	})
	got, err := o.Complete(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)
}

func claudeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClaude_Complete(t *testing.T) {
	var gotBody map[string]any
	srv := claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  FOUNDED_IN \n"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	})

	c := NewClaude("key", "claude-test", 0, time.Second, testLogger(),
		anthropicopt.WithBaseURL(srv.URL), anthropicopt.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "FOUNDED_IN", got)
	assert.Equal(t, float64(0), gotBody["temperature"])
}

func TestClaude_ServerErrorIsUnavailable(t *testing.T) {
	srv := claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	})

	c := NewClaude("key", "claude-test", 0, time.Second, testLogger(),
		anthropicopt.WithBaseURL(srv.URL), anthropicopt.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.False(t, errors.Is(err, ErrOracleTimeout))
}

func TestClaude_TimeoutIsDistinguishable(t *testing.T) {
	srv := claudeServer(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := NewClaude("key", "claude-test", 0, 20*time.Millisecond, testLogger(),
		anthropicopt.WithBaseURL(srv.URL), anthropicopt.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleTimeout)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "MATCH (e:Entity) RETURN e.name"}}]
		}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", srv.URL+"/v1/", "gpt-test", time.Second, testLogger(), openaiopt.WithMaxRetries(0))
	got, err := o.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (e:Entity) RETURN e.name", got)
}
