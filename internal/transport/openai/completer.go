package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/metrics"
)

// Groq OpenAI-compatible defaults.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Completer is a chat completion provider using the OpenAI-compatible API (e.g. Groq).
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion client.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temp,
		maxTokens:   maxTokens,
		logger:      log,
	}
}

// Model returns the configured model id.
func (c *Completer) Model() string { return c.model }

// Complete sends the conversation and waits for the full reply.
func (c *Completer) Complete(ctx context.Context, messages []chat.Message) (chat.Completion, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.request(messages, false))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "complete", "error").Inc()
		return chat.Completion{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "complete", "error").Inc()
		return chat.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProvider)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, "complete", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.model, "complete").Observe(time.Since(start).Seconds())
	c.recordUsage(resp.Usage)

	choice := resp.Choices[0]
	return chat.Completion{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: chat.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream sends the conversation and calls onDelta for every content chunk.
// An error from onDelta stops the stream and is returned as is.
// The returned Completion carries the concatenated content.
func (c *Completer) Stream(
	ctx context.Context, messages []chat.Message, onDelta func(string) error,
) (chat.Completion, error) {
	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(messages, true))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "stream", "error").Inc()
		return chat.Completion{}, parseAPIError(err)
	}
	defer func() { _ = stream.Close() }()

	var (
		content strings.Builder
		out     = chat.Completion{Model: c.model}
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "stream", "error").Inc()
			if ctx.Err() != nil {
				return chat.Completion{}, fmt.Errorf("stream aborted: %w", ctx.Err())
			}
			return chat.Completion{}, parseAPIError(err)
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage != nil {
			out.Usage = chat.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
			c.recordUsage(*chunk.Usage)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			out.FinishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}
		content.WriteString(choice.Delta.Content)
		if err := onDelta(choice.Delta.Content); err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "stream", "aborted").Inc()
			return chat.Completion{}, err
		}
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, "stream", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.model, "stream").Observe(time.Since(start).Seconds())
	out.Content = content.String()
	return out, nil
}

// Models lists the model ids offered by the provider.
func (c *Completer) Models(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, parseAPIError(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Completer) request(messages []chat.Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        1,
		Stream:      stream,
	}
}

func (c *Completer) recordUsage(u openai.Usage) {
	if u.TotalTokens == 0 {
		return
	}
	metrics.LLMTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(u.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(c.model, "completion").Add(float64(u.CompletionTokens))
	metrics.LLMTokensTotal.WithLabelValues(c.model, "total").Add(float64(u.TotalTokens))
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProvider for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrLLMProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("llm request failed: %w: %w", wrap, err)
}

// extractDetail reads the "detail" field some OpenAI-compatible providers use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
