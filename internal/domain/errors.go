package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals malformed or out-of-range input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSourceNotConfigured signals that no content source credentials are set.
	ErrSourceNotConfigured = errors.New("content source not configured")
	// ErrSourceUnavailable signals a failed fetch from the content source.
	ErrSourceUnavailable = errors.New("content source unavailable")
	// ErrScoringFailed signals that a matching run was aborted.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrCacheUnavailable signals a cache backend failure.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrLLMProvider signals a chat completion provider failure.
	ErrLLMProvider = errors.New("llm provider error")
)

// SourceError wraps ErrSourceUnavailable with the upstream status.
type SourceError struct {
	Status  int
	Message string
}

func (e *SourceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrSourceUnavailable.Error(), e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrSourceUnavailable.Error(), e.Status, e.Message)
}

func (e *SourceError) Unwrap() error { return ErrSourceUnavailable }

// NewSourceError creates a source error for an upstream status and message.
func NewSourceError(status int, message string) error {
	return &SourceError{Status: status, Message: message}
}
