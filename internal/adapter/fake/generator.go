package fake

import (
	"context"
	"sync"
)

// Generator is a scripted text generator.
type Generator struct {
	CallRecorder
	mu       sync.Mutex
	response string

	// GenerateFunc, when set, replaces the canned response.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

// NewGenerator returns a Generator answering every prompt with response.
func NewGenerator(response string) *Generator {
	return &Generator{response: response}
}

// SetResponse changes the canned response.
func (g *Generator) SetResponse(response string) {
	g.mu.Lock()
	g.response = response
	g.mu.Unlock()
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.record("Generate", prompt)
	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, prompt)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.response, nil
}
