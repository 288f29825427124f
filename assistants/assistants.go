package assistants

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon", "assistants")

// IAssistant is the identity of an agent, reported to callbacks.
type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// Description returns the description of the Assistant.
	Description() string
}

// Callback receives the agent and tool events of a run.
type Callback interface {
	tools.Callback
	OnAssistantStart(ctx context.Context, agent IAssistant, input string)
	OnAssistantEnd(ctx context.Context, agent IAssistant, input string, output string)
	OnAssistantError(ctx context.Context, agent IAssistant, input string, err error)
	OnAssistantLLMCallStart(ctx context.Context, agent IAssistant, llm llms.Model, messages []llms.Message)
	OnAssistantLLMCallEnd(ctx context.Context, agent IAssistant, llm llms.Model, resp *llms.ContentResponse)
	OnToolNotFound(ctx context.Context, agent IAssistant, tool string)
}

// GetDescriptions returns a markdown list of the assistants
func GetDescriptions(list ...IAssistant) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}
