package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
)

const defaultMaxTokens = 1024

// Claude implements Oracle with the Anthropic Messages API.
type Claude struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClaude creates a Claude-backed oracle. Extra request options (base URL,
// retries) are passed through to the SDK client.
func NewClaude(apiKey, model string, maxTokens int, timeout time.Duration, logger *slog.Logger, opts ...option.RequestOption) *Claude {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	c := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Claude{
		client:    &c,
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
		logger:    logger,
	}
}

// Complete sends prompt as a single user message and returns the first text block.
func (c *Claude) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.Inc(metrics.OracleCalls)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	})
	if err != nil {
		metrics.Inc(metrics.OracleFailures)
		c.logger.Warn("oracle: Claude API error", "error", err)
		return "", classify(callCtx, "claude", err)
	}

	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text := strings.TrimSpace(resp.Content[i].Text)
			c.logger.Debug("oracle: Claude response", "response", text)
			return text, nil
		}
	}

	metrics.Inc(metrics.OracleFailures)
	return "", fmt.Errorf("claude: %w: empty response", ErrOracleUnavailable)
}
