package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// TokenEnvVarName is the environment variable with API key
	TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec
)

// Options for the Anthropic client
type Options struct {
	Token       string
	Model       string
	BaseURL     string
	HTTPClient  option.HTTPClient
	Temperature *float64
	MaxRetries  int
}

// Option is a functional option for the Anthropic client
type Option func(*Options)

// WithToken passes the Anthropic API token to the client. If not set, the token
// is read from the ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the Anthropic model to the client.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the Anthropic base URL to the client.
// If not set, the default base URL is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithTemperature sets the default temperature,
// used when the call does not specify one.
func WithTemperature(temperature float64) Option {
	return func(opts *Options) {
		opts.Temperature = &temperature
	}
}

// WithMaxRetries sets the number of retries of the SDK, default is 0.
func WithMaxRetries(retries int) Option {
	return func(opts *Options) {
		opts.MaxRetries = retries
	}
}
