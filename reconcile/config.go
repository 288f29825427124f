package reconcile

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/llmfactory"
	"github.com/effective-security/finrecon/runlog"
	"github.com/effective-security/finrecon/tools/mcptools"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// CredentialEnv is the environment variable with the DeepSeek API key
	CredentialEnv = "DEEPSEEK_API_KEY" //nolint:gosec

	// DefaultProvider is the name of the default LLM provider
	DefaultProvider = "DEEPSEEK"
	// DefaultModel is the default DeepSeek model
	DefaultModel = "deepseek-chat"
	// DefaultBaseURL is the DeepSeek OpenAI compatible endpoint
	DefaultBaseURL = "https://api.deepseek.com"

	// DefaultTolerance is the amount difference in percent,
	// that the agent must check against fees and exchange rates
	DefaultTolerance = 3.0

	// DefaultRequest is the reconciliation request sent to the agent
	DefaultRequest = "Reconcile all transactions in the internal records against the bank statement. " +
		"Compare the items one by one, explain any difference in amount, date or description, " +
		"and give a complete reconciliation report."
)

// ErrMissingCredential is returned when the LLM API key is not configured
var ErrMissingCredential = errors.New("API key is not found, set DEEPSEEK_API_KEY in the environment or in the .env file")

// LogConfig specifies the run log
type LogConfig struct {
	// Dir is the folder of the log files, default is the current folder
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Prefix is the log file name prefix
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" validate:"required"`
}

// Config of the reconciliation run
type Config struct {
	LLM    *llmfactory.Config `json:"llm,omitempty" yaml:"llm,omitempty" validate:"required"`
	Server mcptools.Config    `json:"server" yaml:"server"`
	Log    LogConfig          `json:"log" yaml:"log"`
	// Verbose prints the tool outputs, the generated SQL and the run statistics
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	// Request is the instruction to the agent
	Request string `json:"request,omitempty" yaml:"request,omitempty" validate:"required"`
	// Tolerance is the amount difference in percent, see DefaultTolerance
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"gte=0,lte=100"`
}

// DefaultLLMConfig returns DeepSeek provider configuration,
// with the token from DEEPSEEK_API_KEY environment variable.
func DefaultLLMConfig() *llmfactory.Config {
	temperature := 0.0
	return &llmfactory.Config{
		DefaultProvider: DefaultProvider,
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            DefaultProvider,
				Token:           os.Getenv(CredentialEnv),
				DefaultModel:    DefaultModel,
				AvailableModels: []string{DefaultModel},
				Temperature:     &temperature,
				OpenAI: llmfactory.OpenAIConfig{
					APIType: "OPENAI",
					BaseURL: DefaultBaseURL,
				},
			},
		},
	}
}

// DefaultConfig returns the configuration used without a config file
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads the configuration from the file,
// the values in the file are expanded from environment variables.
// Empty file returns DefaultConfig.
func LoadConfig(file string) (*Config, error) {
	cfg := &Config{}
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load configuration from %s", file)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM == nil || len(c.LLM.Providers) == 0 {
		c.LLM = DefaultLLMConfig()
	}
	c.Log.Prefix = values.StringsCoalesce(c.Log.Prefix, runlog.DefaultPrefix)
	c.Request = values.StringsCoalesce(strings.TrimSpace(c.Request), DefaultRequest)
	c.Tolerance = values.NumbersCoalesce(c.Tolerance, DefaultTolerance)
	c.Server.DiscoveryTimeout = values.NumbersCoalesce(c.Server.DiscoveryTimeout, mcptools.DiscoveryTimeout)
}

var validate = validator.New()

// Validate returns error if the configuration is not valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return c.LLM.Validate()
}

// CheckCredential returns ErrMissingCredential,
// if a configured provider has no API key.
func (c *Config) CheckCredential() error {
	if c.LLM == nil {
		return errors.WithStack(ErrMissingCredential)
	}
	for _, p := range c.LLM.Providers {
		if strings.TrimSpace(p.Token) == "" {
			return errors.Wrapf(ErrMissingCredential, "provider %s", p.Name)
		}
	}
	return nil
}

// Temperature returns the temperature of the default provider
func (c *Config) Temperature() *float64 {
	if c.LLM == nil {
		return nil
	}
	for _, p := range c.LLM.Providers {
		if p.Name == c.LLM.DefaultProvider {
			return p.Temperature
		}
	}
	if len(c.LLM.Providers) > 0 {
		return c.LLM.Providers[0].Temperature
	}
	return nil
}

// LoadDotEnv loads the environment variables from the files, default is .env in the current folder.
// Missing files are ignored, the variables set in the environment are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "failed to load environment file")
	}
	return nil
}
