package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const (
	envBaseURL = "LLM_BASE_URL"
	envModel   = "LLM_MODEL"
	envAPIKey  = "LLM_API_KEY"

	// Local OpenAI-compatible servers (llama.cpp, vLLM, Ollama).
	defaultBaseURL = "http://127.0.0.1:8080/v1"
	defaultModel   = "qwen3-4b-instruct"
	defaultAPIKey  = "local"

	genMaxTokens = 256
)

type openaiClient struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIFromEnv creates a client for an OpenAI-compatible endpoint,
// defaulting to a local server.
func NewOpenAIFromEnv() (Client, error) {
	base := strings.TrimSpace(os.Getenv(envBaseURL))
	if base == "" {
		base = defaultBaseURL
	}
	model := strings.TrimSpace(os.Getenv(envModel))
	if model == "" {
		model = defaultModel
	}
	key := strings.TrimSpace(os.Getenv(envAPIKey))
	if key == "" {
		key = defaultAPIKey
	}
	return &openaiClient{
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(base),
		),
		model:  model,
		logger: zerolog.Nop(),
	}, nil
}

func (c *openaiClient) Name() string { return c.model }

// Warmup issues a tiny completion so a lazily-loading local server pays
// the model load before the first real plan.
func (c *openaiClient) Warmup(ctx context.Context) error {
	_, err := c.Generate(ctx, "You reply with a single word.", "ok")
	if errors.Is(err, ErrAuth) {
		return err
	}
	// Other warmup failures are advisory; the first plan retries anyway.
	if err != nil {
		c.logger.Warn().Err(err).Msg("llm warmup")
	}
	return nil
}

func (c *openaiClient) Generate(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(genMaxTokens),
		Temperature:         openai.Float(0),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403) {
			return "", fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	text := resp.Choices[0].Message.Content
	c.logger.Debug().
		Dur("took", time.Since(start)).
		Int("chars", len(text)).
		Msg("generate")
	return text, nil
}
