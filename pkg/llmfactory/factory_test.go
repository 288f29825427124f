package llmfactory_test

import (
	"context"
	"testing"

	"github.com/effective-security/finrecon/pkg/llmfactory"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Factory(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "fakekey")
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 3)
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Providers[0].Token)
	require.NotNil(t, cfg.Providers[0].Temperature)
	assert.Equal(t, 0.0, *cfg.Providers[0].Temperature)

	created := 0
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		created++
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "deepseek-chat", fm.model)
	assert.Equal(t, "DEEPSEEK", fm.provider)

	again, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Same(t, model, again)
	assert.Equal(t, 1, created)

	model, err = f.ModelByName("unknown", "gpt-4o-mini")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-mini", fm.model)
	assert.Equal(t, "OPENAI", fm.provider)

	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "deepseek-chat", fm.model)

	model, err = f.ToolModel("table_query")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-mini", fm.model)

	model, err = f.ToolModel("other", "claude-sonnet-4-20250514")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-sonnet-4-20250514", fm.model)
	assert.Equal(t, "ANTHROPIC", fm.provider)

	model, err = f.AssistantModel("FinanceAgent")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "deepseek-chat", fm.model)
	assert.Equal(t, "DEEPSEEK", fm.provider)
}

func Test_EmptyConfig(t *testing.T) {
	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	f := llmfactory.New(cfg)
	_, err = f.DefaultModel()
	assert.EqualError(t, err, "no providers configured")
	_, err = f.ModelByName("gpt-4o")
	assert.EqualError(t, err, "no providers configured")
	_, err = f.AssistantModel("FinanceAgent")
	assert.EqualError(t, err, "no providers configured")

	_, err = llmfactory.LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)
}

func Test_CreateLLM(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	temp := 0.0
	cfg := &llmfactory.ProviderConfig{
		Name:         "DEEPSEEK",
		Token:        "fakekey",
		DefaultModel: "deepseek-chat",
		Temperature:  &temp,
		OpenAI: llmfactory.OpenAIConfig{
			APIType: "OPENAI",
			BaseURL: "https://api.deepseek.com",
		},
	}
	model, err := llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", model.GetName())
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())

	cfg.OpenAI.APIType = "ANTHROPIC"
	cfg.DefaultModel = "claude-sonnet-4-20250514"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())

	cfg.Token = ""
	_, err = llmfactory.CreateLLM(cfg)
	assert.Error(t, err)

	cfg.OpenAI.APIType = "BEDROCK"
	_, err = llmfactory.CreateLLM(cfg)
	assert.EqualError(t, err, "unsupported provider type: BEDROCK")
}

func Test_FindModel(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{
		DefaultModel:    "deepseek-chat",
		AvailableModels: []string{"deepseek-chat", "deepseek-reasoner"},
	}
	assert.Equal(t, "deepseek-reasoner", cfg.FindModel("gpt-4o", "deepseek-reasoner"))
	assert.Equal(t, "deepseek-chat", cfg.FindModel("gpt-4o"))
	assert.Equal(t, "deepseek-chat", cfg.FindModel())
}

func Test_Masked(t *testing.T) {
	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{Name: "DEEPSEEK", Token: "secret"},
			{Name: "NOTOKEN"},
		},
	}
	m := cfg.Masked()
	assert.Equal(t, "***", m.Providers[0].Token)
	assert.Empty(t, m.Providers[1].Token)
	assert.Equal(t, "secret", cfg.Providers[0].Token)
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}
