package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	chatuc "github.com/kailas-cloud/ctxsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ctxsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ModelLister lists the models of the completion provider.
type ModelLister interface {
	Model() string
	Models(ctx context.Context) ([]string, error)
}

// Server serves the content search and chat API.
type Server struct {
	search        *searchuc.Service
	chat          *chatuc.Service
	health        *healthuc.Service
	models        ModelLister
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. chat and models may be nil when no
// LLM provider is configured; their routes then answer 503.
func NewServer(
	search *searchuc.Service,
	chat *chatuc.Service,
	health *healthuc.Service,
	models ModelLister,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		chat:   chat,
		health: health,
		models: models,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrSourceNotConfigured, http.StatusServiceUnavailable, ErrorCodeSourceNotConfigured),
		sourceErrorHandler,
		sentinelHandler(domain.ErrLLMProvider, http.StatusBadGateway, ErrorCodeLLMProviderError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/context", s.Context)
		r.Delete("/cache", s.ClearCache)
		r.Get("/stats", s.Stats)
		r.Get("/content-types", s.ContentTypes)
		r.Get("/models", s.Models)
		r.Post("/chat", s.Chat)
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, maxSearchBodyBytes, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	}
	maxResults, ok := optionalInRange(w, "max_results", req.MaxResults, 1, maxResultsPerSearch)
	if !ok {
		return
	}

	out := s.search.Search(r.Context(), query, searchuc.Options{
		ContentTypes: req.ContentTypes,
		MaxResults:   maxResults,
		UseCache:     req.UseCache,
		Locale:       req.Locale,
	})
	if !out.Success {
		s.handleDomainError(w, out.Err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse(&out, query, chiMiddleware.GetReqID(r.Context())))
}

// Context handles POST /api/v1/context: search, then render the LLM context block.
func (s *Server) Context(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if !decodeBody(w, r, maxSearchBodyBytes, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	}
	maxResults, ok := optionalInRange(w, "max_results", req.MaxResults, 1, maxResultsPerSearch)
	if !ok {
		return
	}
	maxLength, ok := optionalInRange(w, "max_length", req.MaxLength, minContextLength, maxContextLength)
	if !ok {
		return
	}

	out := s.search.Search(r.Context(), query, searchuc.Options{
		ContentTypes: req.ContentTypes,
		MaxResults:   maxResults,
	})
	if !out.Success {
		s.handleDomainError(w, out.Err)
		return
	}

	results := out.Data.Results()
	writeJSON(w, http.StatusOK, ContextResponse{
		Context:      s.search.FormatForPrompt(results, maxLength),
		ResultsCount: len(results),
		Cached:       out.Cached,
	})
}

// ClearCache handles DELETE /api/v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := s.search.ClearCache(r.Context())
	status := http.StatusOK
	if !cleared {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"cleared": cleared})
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.search.Stats(r.Context()))
}

// ContentTypes handles GET /api/v1/content-types.
func (s *Server) ContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.search.ContentTypes(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content_types": types,
		"count":         len(types),
	})
}

// Models handles GET /api/v1/models.
func (s *Server) Models(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeLLMProviderError, "llm provider not configured")
		return
	}
	models, err := s.models.Models(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"current": s.models.Model(),
	})
}

// Chat handles POST /api/v1/chat. Replies stream as Server-Sent Events unless
// the request sets "stream": false.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeLLMProviderError, "llm provider not configured")
		return
	}

	var req ChatRequest
	if !decodeBody(w, r, maxChatBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "message is required")
		return
	}
	ctxLen, ok := optionalInRange(w, "max_context_length", req.MaxContextLength, minContextLength, maxContextLength)
	if !ok {
		return
	}

	creq := chatuc.Request{
		Message:          req.Message,
		ContentTypes:     req.ContentTypes,
		MaxContextLength: ctxLen,
		UseContent:       req.UseContent == nil || *req.UseContent,
	}

	if req.Stream != nil && !*req.Stream {
		s.chatJSON(w, r, creq)
		return
	}
	s.chatStream(w, r, creq)
}

func (s *Server) chatJSON(w http.ResponseWriter, r *http.Request, req chatuc.Request) {
	reply, err := s.chat.Reply(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		ID:                  chiMiddleware.GetReqID(r.Context()),
		Message:             reply.Message,
		Model:               reply.Completion.Model,
		Usage:               reply.Completion.Usage,
		EnhancedWithContent: reply.Enhanced,
		ContentResults:      reply.Results,
	})
}

func (s *Server) chatStream(w http.ResponseWriter, r *http.Request, req chatuc.Request) {
	id := chiMiddleware.GetReqID(r.Context())
	sse, err := newSSEWriter(w, id)
	if err != nil {
		s.logger.Error("streaming not supported", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "streaming not supported")
		return
	}

	reply, err := s.chat.Stream(r.Context(), req, func(delta string) error {
		return sse.send(StreamChunk{ID: id, Type: chunkContent, Content: delta})
	})
	if err != nil {
		if r.Context().Err() != nil {
			// client went away, nobody is listening
			return
		}
		s.logger.Warn("chat stream failed", zap.Error(err))
		_ = sse.send(StreamChunk{ID: id, Type: chunkError, Error: safeDomainMessage(err)})
		return
	}

	_ = sse.send(StreamChunk{ID: id, Type: chunkDone, Metadata: map[string]any{
		"model":                 reply.Completion.Model,
		"finish_reason":         reply.Completion.FinishReason,
		"enhanced_with_content": reply.Enhanced,
		"content_results":       reply.Results,
	}})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody reads a JSON body capped at limit bytes. Writes the error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// optionalInRange validates an optional integer. Absent values yield 0.
func optionalInRange(w http.ResponseWriter, name string, v *int, lo, hi int) (int, bool) {
	if v == nil {
		return 0, true
	}
	if *v < lo || *v > hi {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("%s must be between %d and %d", name, lo, hi))
		return 0, false
	}
	return *v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var se *domain.SourceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Error()
	}
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrSourceNotConfigured,
		domain.ErrSourceUnavailable,
		domain.ErrLLMProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// sourceErrorHandler maps content source failures to 503 with the upstream status.
func sourceErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		return false
	}
	var se *domain.SourceError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"code":            ErrorCodeSourceUnavailable,
			"message":         msg,
			"upstream_status": se.Status,
		})
		return true
	}
	writeError(w, http.StatusServiceUnavailable, ErrorCodeSourceUnavailable, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
