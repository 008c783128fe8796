package search

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/logger"
)

// KnowledgeBasePrompt opens the system message created when a conversation has none.
const KnowledgeBasePrompt = "You are a helpful AI assistant with access to a knowledge base. " +
	"Use the following context to provide accurate, relevant responses."

// EnhanceOptions tune the search behind Enhance.
type EnhanceOptions struct {
	ContentTypes     []string
	MaxResults       int
	MaxContextLength int
}

// EnhanceResult holds the rewritten conversation and the results spliced into it.
type EnhanceResult struct {
	Messages []chat.Message
	Results  []result.Scored
}

// Enhance searches for userQuery and appends the formatted context to the
// first system message, or prepends a new system message when there is none.
// If the search fails or finds nothing, messages are returned unchanged.
// The input slice and its messages are never modified.
func (s *Service) Enhance(
	ctx context.Context, messages []chat.Message, userQuery string, opts EnhanceOptions,
) EnhanceResult {
	out := s.Search(ctx, userQuery, Options{ContentTypes: opts.ContentTypes, MaxResults: opts.MaxResults})
	if !out.Success || out.Data == nil || len(out.Data.Results()) == 0 {
		logger.FromContext(ctx).Debug("No relevant content, conversation left as is",
			zap.Bool("success", out.Success),
			zap.String("error", out.Error),
		)
		return EnhanceResult{Messages: messages}
	}

	results := out.Data.Results()
	block := s.FormatForPrompt(results, opts.MaxContextLength)
	enhanced := slices.Clone(messages)

	idx := slices.IndexFunc(enhanced, func(m chat.Message) bool { return m.Role == chat.RoleSystem })
	if idx >= 0 {
		msg := enhanced[idx]
		msg.Content += "\n\n" + block
		msg.Metadata = markEnhanced(msg.Metadata, len(results))
		enhanced[idx] = msg
	} else {
		sys := chat.Message{
			ID:        uuid.NewString(),
			Role:      chat.RoleSystem,
			Content:   KnowledgeBasePrompt + "\n\n" + block,
			Timestamp: time.Now().UTC(),
			Metadata:  markEnhanced(nil, len(results)),
		}
		enhanced = append([]chat.Message{sys}, enhanced...)
	}

	logger.FromContext(ctx).Debug("Conversation enhanced with content", zap.Int("results", len(results)))
	return EnhanceResult{Messages: enhanced, Results: results}
}

func markEnhanced(meta map[string]any, n int) map[string]any {
	out := maps.Clone(meta)
	if out == nil {
		out = make(map[string]any, 2)
	}
	out[chat.MetaContentEnhanced] = true
	out[chat.MetaResultsCount] = n
	return out
}
