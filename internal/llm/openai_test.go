package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestOpenAI(t *testing.T, provider string, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(provider, Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-test"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	c.newBackoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-test",
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestOpenAI(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("Exception in thread main"))
	})

	out, err := c.Generate(t.Context(), "analyze")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "Exception in thread main" {
		t.Fatalf("Generate() = %q", out)
	}
	if got.Model != "gpt-test" || len(got.Messages) != 2 || got.Messages[1].Content != "analyze" {
		t.Fatalf("request = %+v", got)
	}
}

func TestOpenAIRetries(t *testing.T) {
	t.Run("server errors are retried", func(t *testing.T) {
		var attempts atomic.Int32
		c := newTestOpenAI(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(chatResponse("fine"))
		})
		if _, err := c.Generate(t.Context(), "p"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got := attempts.Load(); got != 2 {
			t.Fatalf("attempts = %d, want 2", got)
		}
	})

	t.Run("auth errors are final", func(t *testing.T) {
		var attempts atomic.Int32
		c := newTestOpenAI(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		})
		if _, err := c.Generate(t.Context(), "p"); err == nil {
			t.Fatal("Generate() error = nil")
		}
		if got := attempts.Load(); got != 1 {
			t.Fatalf("attempts = %d, want 1", got)
		}
	})

	t.Run("no choices", func(t *testing.T) {
		c := newTestOpenAI(t, ProviderGemini, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "x"})
		})
		if _, err := c.Generate(t.Context(), "p"); err == nil {
			t.Fatal("Generate() error = nil with no choices")
		}
	})
}

func TestOpenAISpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	prev := tracer
	tracer = tp.Tracer("test")
	t.Cleanup(func() { tracer = prev })

	c := newTestOpenAI(t, ProviderGemini, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	})
	if _, err := c.Generate(t.Context(), "p"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "llm.gemini.generate" {
		t.Fatalf("spans = %v, want one llm.gemini.generate", spans)
	}
}

func TestNew(t *testing.T) {
	t.Run("default is ollama", func(t *testing.T) {
		c, err := New(Config{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, ok := c.(*OllamaClient); !ok {
			t.Fatalf("New() = %T, want *OllamaClient", c)
		}
	})

	t.Run("gemini defaults", func(t *testing.T) {
		c, err := New(Config{Provider: "Gemini", APIKey: "key"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		oc, ok := c.(*OpenAIClient)
		if !ok {
			t.Fatalf("New() = %T, want *OpenAIClient", c)
		}
		if oc.model != DefaultGeminiModel || oc.provider != ProviderGemini {
			t.Fatalf("model = %q, provider = %q", oc.model, oc.provider)
		}
	})

	t.Run("api key required", func(t *testing.T) {
		if _, err := New(Config{Provider: ProviderOpenAI}); err == nil {
			t.Fatal("New(openai without key) error = nil")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "claude"})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("New() error = %v, want ErrUnknownProvider", err)
		}
	})
}
