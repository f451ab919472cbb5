// Package llm provides text-generation clients for the log analyzer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("odin/llm")

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	DefaultTimeout     = 180 * time.Second
	DefaultMaxAttempts = 3

	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "codellama"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

// Client generates free text from a prompt.
// Production: OllamaClient, OpenAIClient
// Testing: adapter/fake.Generator
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and tunes a provider. Empty fields take provider defaults.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	Temperature float32
}

// New returns the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", ProviderOllama:
		return NewOllamaClient(cfg), nil
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return NewOpenAIClient(ProviderOpenAI, cfg)
	case ProviderGemini:
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultGeminiBaseURL
		}
		return NewOpenAIClient(ProviderGemini, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func defaultBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMaxInterval(10*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
}

// retry runs op up to attempts times, stopping early on permanent errors
// or when ctx is done.
func retry[T any](ctx context.Context, attempts int, b backoff.BackOff, op func() (T, error)) (T, error) {
	limited := backoff.WithMaxRetries(b, uint64(max(attempts-1, 0)))
	return backoff.RetryWithData(op, backoff.WithContext(limited, ctx))
}

// permanentStatus reports whether an HTTP status should not be retried.
func permanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
