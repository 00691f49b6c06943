package autostudent

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds every tunable of the pipeline. It is constructed once at
// process start and passed by reference; nothing reads ambient state at
// fetch/summarize/generate time.
type Config struct {
	// MaxConcurrentFetches bounds the parallel fetch workers.
	MaxConcurrentFetches int
	// SummarizationThresholdChars triggers condensation for longer texts and
	// doubles as the truncation budget when condensation degrades.
	SummarizationThresholdChars int
	// MaxPromptChars is the hard cap for the final prompt.
	MaxPromptChars int
	// FetchRetryLimit bounds retries of one transient resource fetch.
	FetchRetryLimit int
	// GenerationRetryLimit bounds retries of the final completion call.
	GenerationRetryLimit int
	// EthicsGateTimeout is the max wait for an acknowledgment before the
	// gate is treated as rejected.
	EthicsGateTimeout time.Duration
	// CompletionRateLimit budgets completion-API calls (condensation and
	// generation share it). rate.Inf disables the budget.
	CompletionRateLimit rate.Limit
	// CompletionRateBurst is the burst size for the completion budget.
	CompletionRateBurst int
	// Logger receives degradation and progress logs. Defaults to a no-op.
	Logger *zap.Logger
}

type Option func(*Config)

// NewConfig builds a Config from defaults plus options and validates it.
//
// Defaults:
// - `maxConcurrentFetches`: 4
// - `summarizationThresholdChars`: 4000
// - `maxPromptChars`: 24000
// - `fetchRetryLimit`: 3
// - `generationRetryLimit`: 3
// - `ethicsGateTimeout`: 2 minutes
// - `completionRateLimit`: unlimited
func NewConfig(options ...Option) (*Config, error) {
	cfg := &Config{
		MaxConcurrentFetches:        4,
		SummarizationThresholdChars: 4000,
		MaxPromptChars:              24000,
		FetchRetryLimit:             3,
		GenerationRetryLimit:        3,
		EthicsGateTimeout:           2 * time.Minute,
		CompletionRateLimit:         rate.Inf,
		CompletionRateBurst:         1,
		Logger:                      zap.NewNop(),
	}

	for _, option := range options {
		option(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxConcurrentFetches < 1 {
		return NewInvalidConfigError("max concurrent fetches must be at least 1")
	}
	if c.SummarizationThresholdChars < 1 {
		return NewInvalidConfigError("summarization threshold must be positive")
	}
	if c.MaxPromptChars < c.SummarizationThresholdChars {
		return NewInvalidConfigError("max prompt chars must not be below the summarization threshold")
	}
	if c.FetchRetryLimit < 0 || c.GenerationRetryLimit < 0 {
		return NewInvalidConfigError("retry limits must not be negative")
	}
	if c.EthicsGateTimeout <= 0 {
		return NewInvalidConfigError("ethics gate timeout must be positive")
	}
	if c.CompletionRateBurst < 1 {
		return NewInvalidConfigError("completion rate burst must be at least 1")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}

// WithMaxConcurrentFetches bounds the parallel fetch workers.
func WithMaxConcurrentFetches(n int) Option {
	return func(c *Config) {
		c.MaxConcurrentFetches = n
	}
}

// WithSummarizationThreshold sets the character threshold above which a text
// unit is condensed.
func WithSummarizationThreshold(chars int) Option {
	return func(c *Config) {
		c.SummarizationThresholdChars = chars
	}
}

// WithMaxPromptChars sets the hard cap for the final prompt.
func WithMaxPromptChars(chars int) Option {
	return func(c *Config) {
		c.MaxPromptChars = chars
	}
}

// WithFetchRetryLimit bounds retries of one transient resource fetch.
func WithFetchRetryLimit(n int) Option {
	return func(c *Config) {
		c.FetchRetryLimit = n
	}
}

// WithGenerationRetryLimit bounds retries of the final completion call.
func WithGenerationRetryLimit(n int) Option {
	return func(c *Config) {
		c.GenerationRetryLimit = n
	}
}

// WithEthicsGateTimeout sets the max wait before implicit rejection.
func WithEthicsGateTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.EthicsGateTimeout = d
	}
}

// WithCompletionRateLimit budgets completion-API calls per second.
func WithCompletionRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Config) {
		c.CompletionRateLimit = limit
		c.CompletionRateBurst = burst
	}
}

// WithLogger sets the logger used for degradation and progress logs.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
