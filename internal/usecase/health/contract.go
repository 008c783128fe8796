package health

import "context"

// Checker checks an upstream dependency (content source, LLM provider).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Pinger checks cache backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
