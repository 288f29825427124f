package assistants

import (
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/tools"
)

const (
	// DefaultName is the name of the assistant when none is set
	DefaultName = "Generic Assistant"
	// DefaultMaxToolCalls is the number of tool calls allowed in one run
	DefaultMaxToolCalls = 20
	// DefaultMaxContentSize is the limit of bytes sent to the LLM in one call
	DefaultMaxContentSize = 1024 * 1024
)

// Option is a function that can be used to modify the behavior of the Assistant.
type Option func(*Config)

// Config of the Assistant
type Config struct {
	// Name of the assistant, used in logs, metrics and callbacks.
	Name string
	// Description of the assistant.
	Description string
	// Model overrides the default model of the LLM.
	Model string
	// Temperature is the sampling temperature, nil means the provider default.
	Temperature *float64
	// MaxToolCalls is the limit of tool calls in one run.
	MaxToolCalls int
	// MaxContentSize is the limit of bytes sent to the LLM in one call.
	MaxContentSize uint64
	// Tools available to the assistant.
	Tools []tools.ITool
	// Callback receives the run events.
	Callback Callback
}

// NewConfig returns Config with applied options
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:           DefaultName,
		Description:    "An AI assistant that can perform various tasks.",
		MaxToolCalls:   DefaultMaxToolCalls,
		MaxContentSize: DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName sets the name of the Assistant.
func WithName(name string) Option {
	return func(o *Config) {
		o.Name = name
	}
}

// WithDescription sets the description of the Assistant.
func WithDescription(description string) Option {
	return func(o *Config) {
		o.Description = description
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = &temperature
	}
}

// WithMaxToolCalls sets the limit of tool calls in one run.
func WithMaxToolCalls(limit int) Option {
	return func(o *Config) {
		o.MaxToolCalls = limit
	}
}

// WithMaxContentSize sets the limit of bytes sent to the LLM in one call.
func WithMaxContentSize(limit uint64) Option {
	return func(o *Config) {
		o.MaxContentSize = limit
	}
}

// WithTools adds tools to the Assistant.
func WithTools(list ...tools.ITool) Option {
	return func(o *Config) {
		o.Tools = append(o.Tools, list...)
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callback Callback) Option {
	return func(o *Config) {
		o.Callback = callback
	}
}

// GetCallOptions returns the LLM call options of the Config
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var opts []llms.CallOption
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.Temperature))
	}
	return append(opts, extra...)
}
