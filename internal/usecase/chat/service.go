// Package chat answers a single user message, optionally grounded in
// knowledge-base content.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/logger"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// SystemPrompt opens every conversation.
const SystemPrompt = "You are a helpful AI assistant. " +
	"Provide clear, accurate, and helpful responses based on the available information."

// Request is one chat turn.
type Request struct {
	Message          string
	ContentTypes     []string
	MaxContextLength int
	UseContent       bool
}

// Reply is a finished assistant answer.
type Reply struct {
	Message    domchat.Message
	Completion domchat.Completion
	// Enhanced is true when knowledge-base context was spliced in.
	Enhanced bool
	Results  int
}

// Service composes content enhancement with a completion provider.
type Service struct {
	llm      Completer
	enhancer Enhancer
}

// New creates a chat service. enhancer may be nil.
func New(llm Completer, enhancer Enhancer) *Service {
	return &Service{llm: llm, enhancer: enhancer}
}

// Reply answers req in one piece.
func (s *Service) Reply(ctx context.Context, req Request) (Reply, error) {
	msgs, n, err := s.prepare(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	c, err := s.llm.Complete(ctx, msgs)
	if err != nil {
		return Reply{}, fmt.Errorf("complete: %w", err)
	}
	return s.reply(c, n, req.UseContent), nil
}

// Stream answers req, passing content deltas to onDelta as they arrive.
// Cancelling ctx aborts both the content search and the provider stream.
func (s *Service) Stream(ctx context.Context, req Request, onDelta func(string) error) (Reply, error) {
	msgs, n, err := s.prepare(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	c, err := s.llm.Stream(ctx, msgs, onDelta)
	if err != nil {
		return Reply{}, fmt.Errorf("stream: %w", err)
	}
	return s.reply(c, n, req.UseContent), nil
}

func (s *Service) prepare(ctx context.Context, req Request) ([]domchat.Message, int, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, 0, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}

	now := time.Now().UTC()
	msgs := []domchat.Message{
		{ID: uuid.NewString(), Role: domchat.RoleSystem, Content: SystemPrompt, Timestamp: now},
		{ID: uuid.NewString(), Role: domchat.RoleUser, Content: text, Timestamp: now},
	}
	if !req.UseContent || s.enhancer == nil {
		return msgs, 0, nil
	}

	res := s.enhancer.Enhance(ctx, msgs, text, search.EnhanceOptions{
		ContentTypes:     req.ContentTypes,
		MaxContextLength: req.MaxContextLength,
	})
	logger.FromContext(ctx).Debug("Chat context prepared",
		zap.Int("results", len(res.Results)),
		zap.Int("messages", len(res.Messages)),
	)
	return res.Messages, len(res.Results), nil
}

func (s *Service) reply(c domchat.Completion, results int, useContent bool) Reply {
	return Reply{
		Message: domchat.Message{
			ID:        uuid.NewString(),
			Role:      domchat.RoleAssistant,
			Content:   c.Content,
			Timestamp: time.Now().UTC(),
		},
		Completion: c,
		Enhanced:   useContent && results > 0,
		Results:    results,
	}
}
