package openai

import (
	"net/http"
	"time"
)

const (
	tokenEnvVarName   = "OPENAI_API_KEY"  //nolint:gosec
	modelEnvVarName   = "OPENAI_MODEL"    //nolint:gosec
	baseURLEnvVarName = "OPENAI_BASE_URL" //nolint:gosec
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o-mini"
	// DefaultRequestTimeout is the per request timeout
	DefaultRequestTimeout = 5 * time.Minute
)

// HTTPClient is the interface of the HTTP client used by the SDK.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type options struct {
	token          string
	model          string
	baseURL        string
	httpClient     HTTPClient
	temperature    *float64
	maxRetries     int
	requestTimeout time.Duration
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the default model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the base url to the client,
// use it for OpenAI compatible backends like https://api.deepseek.com.
// If not set, the base url is read from the OPENAI_BASE_URL environment variable.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithTemperature sets the default temperature,
// used when the call does not specify one.
func WithTemperature(temperature float64) Option {
	return func(opts *options) {
		opts.temperature = &temperature
	}
}

// WithMaxRetries sets the number of retries of the SDK, default is 0.
func WithMaxRetries(retries int) Option {
	return func(opts *options) {
		opts.maxRetries = retries
	}
}

// WithRequestTimeout sets the per request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.requestTimeout = timeout
	}
}
