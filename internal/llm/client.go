// Package llm abstracts the planning model behind a minimal text
// generation interface, with an OpenAI-compatible local backend and a
// rule-driven mock for offline runs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const envProvider = "LLM_PROVIDER" // "openai" or "mock"

// ErrAuth is returned when the model backend refuses credentials. The
// caller treats it as a distinct exit condition.
var ErrAuth = errors.New("llm: authentication refused")

// Client is the single capability the planner needs from a model.
type Client interface {
	// Generate produces raw text for a system + user prompt pair.
	Generate(ctx context.Context, system, user string) (string, error)
	// Warmup loads or probes the backend so the first plan is not slow.
	Warmup(ctx context.Context) error
	Name() string
}

// NewFromEnv creates a client based on LLM_PROVIDER, defaulting to the
// OpenAI-compatible backend.
func NewFromEnv() (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv(envProvider)))
	if provider == "" {
		provider = "openai"
	}
	switch provider {
	case "openai":
		return NewOpenAIFromEnv()
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (use 'openai' or 'mock')", provider)
	}
}

// NewFromEnvWithLogger is NewFromEnv with a logger attached.
func NewFromEnvWithLogger(logger zerolog.Logger) (Client, error) {
	client, err := NewFromEnv()
	if err != nil {
		return nil, err
	}
	if oc, ok := client.(*openaiClient); ok {
		oc.logger = logger
	}
	return client, nil
}
