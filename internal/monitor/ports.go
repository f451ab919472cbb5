package monitor

import "context"

// TextGenerator produces free text for a prompt.
// Production: llm.OllamaClient, llm.OpenAIClient
// Testing: fake.Generator
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
