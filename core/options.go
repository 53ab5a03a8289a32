package core

import (
	"log/slog"
	"time"
)

// Config holds worker loop configuration
type Config struct {
	WorkerID     string
	WaitInterval time.Duration
	MaxCycles    int
	Params       map[string]any
	Logger       *slog.Logger
}

// Option is a function that modifies loop configuration
type Option func(*Config)

// defaultConfig returns default configuration
func defaultConfig() *Config {
	return &Config{
		WaitInterval: 10 * time.Minute,
		MaxCycles:    0,
		Params:       map[string]any{},
		Logger:       slog.Default(),
	}
}

// WithWorkerID overrides the worker-type default identifier
func WithWorkerID(id string) Option {
	return func(c *Config) {
		c.WorkerID = id
	}
}

// WithWaitInterval sets the wait between work cycles
func WithWaitInterval(d time.Duration) Option {
	return func(c *Config) {
		c.WaitInterval = d
	}
}

// WithMaxCycles bounds the number of work cycles (0 means unbounded)
func WithMaxCycles(n int) Option {
	return func(c *Config) {
		c.MaxCycles = n
	}
}

// WithParams sets the worker-specific parameter map
func WithParams(params map[string]any) Option {
	return func(c *Config) {
		if params != nil {
			c.Params = params
		}
	}
}

// WithLogger sets the logger used by the loop and passed to the worker
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
