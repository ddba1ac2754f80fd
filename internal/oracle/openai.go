package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
)

// OpenAI implements Oracle with the Chat Completions API. Any
// OpenAI-compatible endpoint works when baseURL is set.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAI creates a chat-completions oracle.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger, opts ...option.RequestOption) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(append(options, opts...)...)
	return &OpenAI{
		client:  &client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Complete sends prompt as a user message at temperature 0.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.Inc(metrics.OracleCalls)

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		metrics.Inc(metrics.OracleFailures)
		o.logger.Warn("oracle: OpenAI API error", "error", err)
		return "", classify(callCtx, "openai", err)
	}
	if len(resp.Choices) == 0 {
		metrics.Inc(metrics.OracleFailures)
		return "", fmt.Errorf("openai: %w: no choices in response", ErrOracleUnavailable)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Debug("oracle: OpenAI response", "response", text)
	return text, nil
}
