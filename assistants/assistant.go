package assistants

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/llmutils"
	"github.com/effective-security/finrecon/pkg/metricskey"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"
)

// Assistant is a tool-calling chat agent.
// The Assistant is stateless between runs, except for LastRunMessages.
type Assistant struct {
	llm       llms.Model
	sysprompt string
	cfg       *Config

	toolsByName map[string]tools.ITool
	toolNames   []string
	llmToolDefs []llms.Tool

	lock        sync.Mutex
	runMessages []llms.Message
}

var _ IAssistant = (*Assistant)(nil)

// NewAssistant returns the Assistant with the system prompt and options.
// Tool names must be unique.
func NewAssistant(llmModel llms.Model, sysprompt string, options ...Option) (*Assistant, error) {
	if llmModel == nil {
		return nil, errors.New("LLM model is required")
	}
	cfg := NewConfig(options...)
	a := &Assistant{
		llm:         llmModel,
		sysprompt:   sysprompt,
		cfg:         cfg,
		toolsByName: make(map[string]tools.ITool, len(cfg.Tools)),
	}

	for _, tool := range cfg.Tools {
		name := tool.Name()
		// use lowercase for the key
		key := strings.ToLower(name)
		if a.toolsByName[key] != nil {
			return nil, errors.Errorf("assistant %s: duplicate tool: %s", cfg.Name, name)
		}
		a.toolsByName[key] = tool
		a.toolNames = append(a.toolNames, name)
	}
	if len(cfg.Tools) > 0 {
		if !llmModel.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
			return nil, errors.Errorf("assistant %s: the LLM does not support function calling", cfg.Name)
		}
		a.llmToolDefs = tools.ToLLMTools(cfg.Tools...)
	}
	return a, nil
}

// Name returns the name of the Assistant.
func (a *Assistant) Name() string {
	return a.cfg.Name
}

// Description returns the description of the Assistant.
func (a *Assistant) Description() string {
	return a.cfg.Description
}

// ToolNames returns the names of the tools, in the order they were added.
func (a *Assistant) ToolNames() []string {
	return append([]string(nil), a.toolNames...)
}

// LastRunMessages returns the messages of the last run,
// including the system prompt and tools executions.
func (a *Assistant) LastRunMessages() []llms.Message {
	a.lock.Lock()
	defer a.lock.Unlock()
	return append([]llms.Message(nil), a.runMessages...)
}

// Run sends the request to the LLM, executes the requested tools,
// and returns the final answer of the model.
func (a *Assistant) Run(ctx context.Context, request string) (string, error) {
	started := time.Now()
	defer metricskey.PerfAssistantCall.MeasureSince(started, a.Name())

	callback := a.cfg.Callback
	if callback != nil {
		callback.OnAssistantStart(ctx, a, request)
	}

	result, messages, err := a.run(ctx, request)

	a.lock.Lock()
	a.runMessages = messages
	a.lock.Unlock()

	if err != nil {
		metricskey.StatsAssistantCallsFailed.IncrCounter(1, a.Name())
		logger.ContextKV(ctx, xlog.ERROR,
			"assistant", a.Name(),
			"input", slices.StringUpto(request, 64),
			"err", err.Error(),
		)
		if callback != nil {
			callback.OnAssistantError(ctx, a, request, err)
		}
		return "", err
	}

	metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, a.Name())
	if callback != nil {
		callback.OnAssistantEnd(ctx, a, request, result)
	}
	return result, nil
}

func (a *Assistant) run(ctx context.Context, request string) (string, []llms.Message, error) {
	assistantName := a.Name()
	modelName := values.StringsCoalesce(a.cfg.Model, a.llm.GetName())
	callback := a.cfg.Callback

	messageHistory := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, strings.TrimRight(a.sysprompt, "\n")),
		llms.MessageFromTextParts(llms.RoleHuman, request),
	}

	var extra []llms.CallOption
	if len(a.llmToolDefs) > 0 {
		extra = append(extra, llms.WithTools(a.llmToolDefs))
	}
	callOpts := a.cfg.GetCallOptions(extra...)

	bytesLimit := values.NumbersCoalesce(a.cfg.MaxContentSize, DefaultMaxContentSize)
	toolsLimit := values.NumbersCoalesce(a.cfg.MaxToolCalls, DefaultMaxToolCalls)

	var totalToolExecuted int
	for {
		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		if bytesSent > bytesLimit {
			return "", messageHistory, errors.Errorf("assistant %s: the content size exceeded limit", assistantName)
		}

		if callback != nil {
			callback.OnAssistantLLMCallStart(ctx, a, a.llm, messageHistory)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), assistantName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), assistantName, modelName)

		resp, err := a.llm.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return "", messageHistory, errors.Wrapf(err, "assistant %s: failed to generate content from LLM", assistantName)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return "", messageHistory, errors.Errorf("assistant %s: LLM returned empty response with no choices", assistantName)
		}

		if callback != nil {
			callback.OnAssistantLLMCallEnd(ctx, a, a.llm, resp)
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), assistantName, modelName)
		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), assistantName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), assistantName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), assistantName, modelName)

		toolCalls := collectToolCalls(resp)
		if len(toolCalls) == 0 {
			result := combineContent(resp)
			logger.ContextKV(ctx, xlog.DEBUG,
				"assistant", assistantName,
				"status", "response",
				"choices", len(resp.Choices),
				"tool_calls", totalToolExecuted,
			)
			messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleAI, result))
			return result, messageHistory, nil
		}

		totalToolExecuted += len(toolCalls)
		if totalToolExecuted > toolsLimit {
			return "", messageHistory, errors.Errorf("assistant %s: the tool calls limit is exceeded: %d", assistantName, toolsLimit)
		}

		messageHistory = append(messageHistory, llms.MessageFromToolCalls(llms.RoleAI, toolCalls...))
		responses, err := a.executeToolCalls(ctx, toolCalls)
		if err != nil {
			return "", messageHistory, err
		}
		for _, r := range responses {
			messageHistory = append(messageHistory, llms.MessageFromToolResponse(llms.RoleTool, r))
		}
	}
}

// collectToolCalls returns the tool calls of all choices,
// with the ID and Type populated.
func collectToolCalls(resp *llms.ContentResponse) []llms.ToolCall {
	var toolCalls []llms.ToolCall
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			if tc.ID == "" {
				tc.ID = fmt.Sprintf("%s_%d", tc.FunctionCall.Name, len(toolCalls))
			}
			tc.Type = values.StringsCoalesce(tc.Type, "function")
			toolCalls = append(toolCalls, tc)
		}
	}
	return toolCalls
}

func combineContent(resp *llms.ContentResponse) string {
	var parts []string
	for _, choice := range resp.Choices {
		if choice != nil && choice.Content != "" {
			parts = append(parts, choice.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// executeToolCalls runs the tool calls concurrently,
// the responses are returned in the order of the calls.
func (a *Assistant) executeToolCalls(ctx context.Context, toolCalls []llms.ToolCall) ([]llms.ToolCallResponse, error) {
	responses := make([]llms.ToolCallResponse, len(toolCalls))

	g, gctx := errgroup.WithContext(ctx)
	for i, tc := range toolCalls {
		g.Go(func() error {
			content, err := a.callTool(gctx, tc)
			if err != nil {
				return err
			}
			responses[i] = llms.ToolCallResponse{
				ToolCallID: tc.ID,
				Name:       tc.FunctionCall.Name,
				Content:    content,
			}
			logger.ContextKV(gctx, xlog.DEBUG,
				"assistant", a.Name(),
				"status", "tool_call_response",
				"tool_call_id", tc.ID,
				"tool", tc.FunctionCall.Name,
				"content_length", len(content),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func (a *Assistant) callTool(ctx context.Context, tc llms.ToolCall) (string, error) {
	toolName := tc.FunctionCall.Name
	toolArgs := tc.FunctionCall.Arguments
	callback := a.cfg.Callback

	tool := a.toolsByName[strings.ToLower(toolName)]
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if callback != nil {
			callback.OnToolNotFound(ctx, a, toolName)
		}

		availableTools := strings.Join(a.toolNames, ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.Name(),
			"status", "tool_not_found",
			"tool", toolName,
			"available_tools", availableTools,
		)
		return fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools), nil
	}

	if callback != nil {
		callback.OnToolStart(ctx, tool, toolArgs)
	}

	started := time.Now()
	res, err := tool.Call(ctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if callback != nil {
			callback.OnToolError(ctx, tool, toolArgs, err)
		}
		if !errors.Is(err, tools.ErrFailedUnmarshalInput) {
			return "", errors.Wrapf(err, "assistant %s: failed to call tool %s", a.Name(), toolName)
		}
		// the model can fix the arguments
		return fmt.Sprintf("Failed to call `%s`: %s", toolName, err.Error()), nil
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	if callback != nil {
		callback.OnToolEnd(ctx, tool, toolArgs, res)
	}
	return res, nil
}
