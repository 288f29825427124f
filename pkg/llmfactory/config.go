package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config for the LLM providers
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,min=1,dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
	// ToolModels specifies the mapping of tools to models.
	// key is the tool name, value is the list of preferred model names.
	// Use `default: [<model_name>]` as the default model for tools.
	ToolModels map[string][]string `json:"tool_models,omitempty" yaml:"tool_models,omitempty"`
	// AssistantModels specifies the mapping of assistants to models.
	// key is the assistant name, value is the list of preferred model names.
	// Use `default: [<model_name>]` as the default model for assistants.
	AssistantModels map[string][]string `json:"assistant_models,omitempty" yaml:"assistant_models,omitempty"`
}

// ProviderConfig for a chat provider
type ProviderConfig struct {
	Name            string   `json:"name" yaml:"name" validate:"required"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// Temperature is the default sampling temperature for the provider,
	// when not set the backend default is used.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxRetries is the number of retries of the SDK client, default is 0.
	MaxRetries int          `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	OpenAI     OpenAIConfig `json:"open_ai" yaml:"open_ai"`
}

// OpenAIConfig specifies API options
type OpenAIConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIType specifies the type of API to use: OPENAI|ANTHROPIC.
	// OpenAI compatible backends, like DeepSeek, use OPENAI with BaseURL.
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" validate:"omitempty,oneof=OPENAI OPEN_AI ANTHROPIC openai anthropic"`
}

// FindModel returns the first of preferred models available for the provider,
// or the default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Masked returns a copy of the configuration with tokens redacted
func (c *Config) Masked() *Config {
	cp := *c
	cp.Providers = make([]*ProviderConfig, len(c.Providers))
	for i, p := range c.Providers {
		pc := *p
		if pc.Token != "" {
			pc.Token = "***"
		}
		cp.Providers[i] = &pc
	}
	return &cp
}

var validate = validator.New()

// Validate returns error if the configuration is not valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid LLM configuration")
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load LLM configuration from %s", file)
	}
	return cfg, nil
}
