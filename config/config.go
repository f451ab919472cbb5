// Package config handles odin's persistent settings.
//
// Config is stored at $XDG_CONFIG_HOME/odin/config.yaml (defaults to
// ~/.config/odin/config.yaml). Environment variables override file values
// and command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"odin/internal/llm"
	"odin/internal/logging"
	"odin/internal/monitor"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

// Monitor tunes the collection schedule. Zero values take the monitor's defaults.
type Monitor struct {
	DisplayInterval  time.Duration `yaml:"display-interval,omitempty"`
	StatsInterval    time.Duration `yaml:"stats-interval,omitempty"`
	LogsInterval     time.Duration `yaml:"logs-interval,omitempty"`
	AnalysisInterval time.Duration `yaml:"analysis-interval,omitempty"`
	FetchTimeout     time.Duration `yaml:"fetch-timeout,omitempty"`
	AnalysisTimeout  time.Duration `yaml:"analysis-timeout,omitempty"`
	GracePeriod      time.Duration `yaml:"grace-period,omitempty"`
	MaxConcurrency   int           `yaml:"max-concurrency,omitempty"`
	PrimaryInterface string        `yaml:"primary-interface,omitempty"`
	FailurePolicy    string        `yaml:"failure-policy,omitempty"` // keep-stale | clear-on-empty
	AnalysisRate     float64       `yaml:"analysis-rate,omitempty"`  // calls per second, 0 = unlimited
	AnalysisBurst    int           `yaml:"analysis-burst,omitempty"`
}

// LLM selects the text-generation backend.
type LLM struct {
	Provider    string        `yaml:"provider,omitempty"` // ollama | openai | gemini
	Model       string        `yaml:"model,omitempty"`
	BaseURL     string        `yaml:"base-url,omitempty"`
	APIKey      string        `yaml:"api-key,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxAttempts int           `yaml:"max-attempts,omitempty"`
	Temperature float32       `yaml:"temperature,omitempty"`
}

type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Config holds every persistent setting.
type Config struct {
	Monitor     Monitor `yaml:"monitor"`
	LLM         LLM     `yaml:"llm"`
	Log         Log     `yaml:"log"`
	DBPath      string  `yaml:"db-path,omitempty"`      // empty disables persistence
	MetricsAddr string  `yaml:"metrics-addr,omitempty"` // empty disables /metrics
}

// Defaults returns a Config with the defaults written out, the content of a
// freshly initialized config file. The analysis interval stays unset so it
// keeps following the logs interval.
func Defaults() *Config {
	mcfg, _ := monitor.NormalizeConfig(monitor.Config{})
	return &Config{
		Monitor: Monitor{
			DisplayInterval:  mcfg.DisplayInterval,
			StatsInterval:    mcfg.StatsInterval,
			LogsInterval:     mcfg.LogsInterval,
			FetchTimeout:     mcfg.FetchTimeout,
			AnalysisTimeout:  mcfg.AnalysisTimeout,
			GracePeriod:      mcfg.GracePeriod,
			MaxConcurrency:   mcfg.MaxConcurrency,
			PrimaryInterface: mcfg.PrimaryInterface,
			FailurePolicy:    mcfg.FailurePolicy.String(),
		},
		LLM: LLM{
			Provider:    llm.ProviderOllama,
			Model:       llm.DefaultOllamaModel,
			BaseURL:     llm.DefaultOllamaBaseURL,
			Timeout:     llm.DefaultTimeout,
			MaxAttempts: llm.DefaultMaxAttempts,
		},
		Log: Log{Level: logging.LevelInfo, Format: logging.FormatText},
	}
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/odin/config.yaml.
func Path() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath is where `odin monitor --persist` writes observations.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "odin.db")
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "odin")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "odin")
}

// Load reads the config file and applies environment overrides. If the file
// does not exist, the defaults plus environment are returned.
func Load() (*Config, error) {
	cfg, err := LoadFile(Path())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFile reads one config file. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	return c.SaveFile(Path())
}

func (c *Config) SaveFile(p string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// May hold an API key.
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides file values with the environment. getenv is os.Getenv
// outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.Log.Level, "ODIN_LOG_LEVEL")
	set(&c.Log.Format, "ODIN_LOG_FORMAT")
	set(&c.DBPath, "ODIN_DB")
	set(&c.MetricsAddr, "ODIN_METRICS_ADDR")
	set(&c.Monitor.FailurePolicy, "ODIN_FAILURE_POLICY")
	c.LLM.applyProviderEnv(getenv)
}

// ForProvider returns a copy of c targeting provider. Model, endpoint and key
// of the previous provider are dropped; the new provider's environment applies.
func (c *Config) ForProvider(provider string, getenv func(string) string) *Config {
	next := *c
	next.LLM = LLM{
		Provider:    provider,
		Timeout:     c.LLM.Timeout,
		MaxAttempts: c.LLM.MaxAttempts,
		Temperature: c.LLM.Temperature,
	}
	next.LLM.applyProviderEnv(getenv)
	return &next
}

func (l *LLM) applyProviderEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	switch strings.ToLower(l.Provider) {
	case "", llm.ProviderOllama:
		set(&l.Model, "OLLAMA_MODEL")
		set(&l.BaseURL, "OLLAMA_BASE_URL")
	case llm.ProviderOpenAI:
		set(&l.Model, "OPENAI_MODEL")
		set(&l.APIKey, "OPENAI_API_KEY")
	case llm.ProviderGemini:
		set(&l.Model, "GEMINI_MODEL")
		set(&l.APIKey, "GEMINI_API_KEY")
	}
}

// Validate reports every problem found, joined, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, err := c.MonitorConfig(); err != nil {
		invalid("monitor: %v", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "", llm.ProviderOllama:
	case llm.ProviderOpenAI, llm.ProviderGemini:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			invalid("llm: provider %q requires an api key", c.LLM.Provider)
		}
	default:
		invalid("llm: %v %q", llm.ErrUnknownProvider, c.LLM.Provider)
	}
	if c.LLM.Timeout < 0 || c.LLM.MaxAttempts < 0 {
		invalid("llm: timeout and max-attempts must not be negative")
	}
	if _, err := logging.NewHandler(io.Discard, c.Log.Level, c.Log.Format); err != nil {
		invalid("log: %v", err)
	}
	return errors.Join(errs...)
}

// MonitorConfig converts the monitor section, applying the monitor's defaults.
func (c *Config) MonitorConfig() (monitor.Config, error) {
	policy, err := monitor.ParseFailurePolicy(c.Monitor.FailurePolicy)
	if err != nil {
		return monitor.Config{}, err
	}
	if c.Monitor.AnalysisRate < 0 {
		return monitor.Config{}, fmt.Errorf("analysis rate must not be negative: %v", c.Monitor.AnalysisRate)
	}
	return monitor.NormalizeConfig(monitor.Config{
		DisplayInterval:  c.Monitor.DisplayInterval,
		StatsInterval:    c.Monitor.StatsInterval,
		LogsInterval:     c.Monitor.LogsInterval,
		AnalysisInterval: c.Monitor.AnalysisInterval,
		FetchTimeout:     c.Monitor.FetchTimeout,
		AnalysisTimeout:  c.Monitor.AnalysisTimeout,
		GracePeriod:      c.Monitor.GracePeriod,
		MaxConcurrency:   c.Monitor.MaxConcurrency,
		PrimaryInterface: c.Monitor.PrimaryInterface,
		FailurePolicy:    policy,
		AnalysisRate:     rate.Limit(c.Monitor.AnalysisRate),
		AnalysisBurst:    c.Monitor.AnalysisBurst,
	})
}

// LLMConfig converts the llm section.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Timeout:     c.LLM.Timeout,
		MaxAttempts: c.LLM.MaxAttempts,
		Temperature: c.LLM.Temperature,
	}
}
