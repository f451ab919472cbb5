// Package cmdutil holds the wiring shared by odin's commands.
package cmdutil

import (
	"context"
	"fmt"
	"os"
	"strings"

	"odin/cmd/odin/ui"
	"odin/config"
	"odin/internal/adapter/docker"
	"odin/internal/adapter/sqlite"
	"odin/internal/llm"

	"github.com/spf13/cobra"
)

// LoadConfig reads the config file, applies the environment and validates
// the result.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectDocker creates a Docker runtime and waits for the daemon to answer.
func ConnectDocker(ctx context.Context) (*docker.Runtime, error) {
	rt, err := docker.NewRuntime()
	if err != nil {
		return nil, err
	}
	if err := ui.RunWithSpinner(ctx, "Connecting to Docker", rt.WaitReady); err != nil {
		return nil, err
	}
	return rt, nil
}

// LLMFlags select the text-generation backend on the command line. Empty
// values leave the config untouched.
type LLMFlags struct {
	Provider string
	Model    string
}

func (f *LLMFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Provider, "provider", "", "LLM provider (ollama, openai, gemini)")
	cmd.Flags().StringVar(&f.Model, "model", "", "Model name for the selected provider")
}

// Client builds the llm.Client for cfg with the flags applied.
func (f *LLMFlags) Client(cfg *config.Config) (llm.Client, error) {
	if p := strings.TrimSpace(f.Provider); p != "" && !strings.EqualFold(p, cfg.LLM.Provider) {
		cfg = cfg.ForProvider(p, os.Getenv)
	}
	lc := cfg.LLMConfig()
	if m := strings.TrimSpace(f.Model); m != "" {
		lc.Model = m
	}
	client, err := llm.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return client, nil
}

// OpenStore opens the observation database at path, falling back to the
// config's and then the default location.
func OpenStore(cfg *config.Config, path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		path = config.DefaultDBPath()
	}
	return sqlite.Open(path)
}
