package openai

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon/pkg/llms", "openai")

// ErrMissingToken is returned when no API token is configured
var ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")

// LLM is a chat model served by OpenAI Chat Completions API,
// or by a compatible backend.
type LLM struct {
	client  openaisdk.Client
	model   string
	options *options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		token:          os.Getenv(tokenEnvVarName),
		model:          os.Getenv(modelEnvVarName),
		baseURL:        os.Getenv(baseURLEnvVarName),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(o.token),
		option.WithMaxRetries(o.maxRetries),
		option.WithRequestTimeout(o.requestTimeout),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}

	return &LLM{
		client:  openaisdk.NewClient(clientOpts...),
		model:   values.StringsCoalesce(o.model, DefaultModel),
		options: o,
	}, nil
}

// GetName returns the default model name.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	msgs, err := ToMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(values.StringsCoalesce(opts.Model, o.model)),
		Messages: msgs,
		Tools:    ToTools(opts.Tools),
	}

	temperature := opts.Temperature
	if temperature == nil {
		temperature = o.options.temperature
	}
	if temperature != nil {
		params.Temperature = openaisdk.Float(*temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openaisdk.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}
	if choice, ok := opts.ToolChoice.(string); ok && choice != "" && len(params.Tools) > 0 {
		params.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openaisdk.String(choice)}
	}
	if opts.JSONMode {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", params.Model,
		"messages", len(msgs),
		"tools", len(params.Tools),
	)

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(llms.ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: values.StringsCoalesce(tc.Type, "function"),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// ToMessages converts messages to Chat Completions messages.
func ToMessages(messages []llms.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	res := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			res = append(res, openaisdk.SystemMessage(textOf(mc)))
		case llms.RoleHuman:
			res = append(res, openaisdk.UserMessage(textOf(mc)))
		case llms.RoleAI:
			res = append(res, assistantMessage(mc))
		case llms.RoleTool:
			// each tool response is a separate message
			for _, p := range mc.Parts {
				resp, ok := p.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, p)
				}
				res = append(res, openaisdk.ToolMessage(resp.Content, resp.ToolCallID))
			}
		default:
			return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
		}
	}
	return res, nil
}

func textOf(mc llms.Message) string {
	var text string
	for _, p := range mc.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	return text
}

func assistantMessage(mc llms.Message) openaisdk.ChatCompletionMessageParamUnion {
	var calls []openaisdk.ChatCompletionMessageToolCallUnionParam
	for _, p := range mc.Parts {
		tc, ok := p.(llms.ToolCall)
		if !ok || tc.FunctionCall == nil {
			continue
		}
		calls = append(calls, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.FunctionCall.Name,
					Arguments: tc.FunctionCall.Arguments,
				},
			},
		})
	}
	if len(calls) == 0 {
		return openaisdk.AssistantMessage(textOf(mc))
	}

	msg := &openaisdk.ChatCompletionAssistantMessageParam{
		ToolCalls: calls,
	}
	if text := textOf(mc); text != "" {
		msg.Content.OfString = openaisdk.String(text)
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: msg}
}

// ToTools converts tools definitions to Chat Completions tools.
func ToTools(tools []llms.Tool) []openaisdk.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	res := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		def := shared.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: openaisdk.String(t.Function.Description),
		}
		if t.Function.Parameters != nil {
			def.Parameters = toFunctionParameters(t.Function.Parameters)
		}
		res = append(res, openaisdk.ChatCompletionFunctionTool(def))
	}
	return res
}

func toFunctionParameters(v any) shared.FunctionParameters {
	js, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var params shared.FunctionParameters
	if err = json.Unmarshal(js, &params); err != nil {
		return nil
	}
	return params
}
