package chat

import (
	"context"

	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// Completer generates assistant replies.
type Completer interface {
	Complete(ctx context.Context, messages []domchat.Message) (domchat.Completion, error)
	Stream(ctx context.Context, messages []domchat.Message, onDelta func(string) error) (domchat.Completion, error)
}

// Enhancer splices knowledge-base context into a conversation.
type Enhancer interface {
	Enhance(ctx context.Context, messages []domchat.Message, userQuery string, opts search.EnhanceOptions) search.EnhanceResult
}
