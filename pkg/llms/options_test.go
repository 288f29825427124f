package llms_test

import (
	"testing"

	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "get_exchange_rate",
			},
		},
	}
	meta := map[string]any{"run": "1"}

	opts := llms.NewCallOptions(
		llms.WithModel("deepseek-chat"),
		llms.WithMaxTokens(100),
		llms.WithTemperature(0),
		llms.WithTopP(0.5),
		llms.WithStopWords([]string{"stop"}),
		llms.WithTools(tools),
		llms.WithToolChoice("auto"),
		llms.WithJSONMode(),
		llms.WithMetadata(meta),
	)

	assert.Equal(t, "deepseek-chat", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.0, *opts.Temperature)
	assert.Equal(t, 0.5, opts.TopP)
	assert.Equal(t, []string{"stop"}, opts.StopWords)
	assert.Equal(t, tools, opts.Tools)
	assert.Equal(t, "auto", opts.ToolChoice)
	assert.True(t, opts.JSONMode)
	assert.Equal(t, meta, opts.Metadata)

	assert.Nil(t, llms.NewCallOptions().Temperature)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityFunctionCalling))
	assert.True(t, llms.ProviderAnthropic.Supports(llms.CapabilityFunctionCalling|llms.CapabilitySystemPrompt))
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}
