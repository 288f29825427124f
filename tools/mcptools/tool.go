package mcptools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/llmutils"
	"github.com/effective-security/finrecon/tools"
	"github.com/invopop/jsonschema"
	mcp "github.com/metoro-io/mcp-golang"
)

// Caller invokes remote tools
type Caller interface {
	CallTool(ctx context.Context, name string, args any) (*mcp.ToolResponse, error)
}

// Tool is a handle of the remote MCP tool
type Tool struct {
	caller      Caller
	name        string
	description string
	parameters  *jsonschema.Schema
}

var _ tools.ITool = (*Tool)(nil)

// NewTool returns a handle of the remote tool
func NewTool(caller Caller, name, description string, parameters *jsonschema.Schema) *Tool {
	return &Tool{
		caller:      caller,
		name:        name,
		description: description,
		parameters:  parameters,
	}
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return t.parameters
}

// Call decodes JSON arguments, invokes the remote tool,
// and returns its text content.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	if trimmed := strings.TrimSpace(input); trimmed != "" {
		if err := json.Unmarshal(llmutils.CleanJSON([]byte(trimmed)), &args); err != nil {
			return "", errors.WithStack(tools.ErrFailedUnmarshalInput)
		}
	}

	resp, err := t.caller.CallTool(ctx, t.name, args)
	if err != nil {
		return "", errors.Wrapf(err, "failed to call %s", t.name)
	}
	return TextContent(resp), nil
}

// TextContent returns the concatenated text of the response
func TextContent(resp *mcp.ToolResponse) string {
	if resp == nil {
		return ""
	}
	var texts []string
	for _, c := range resp.Content {
		if c != nil && c.TextContent != nil {
			texts = append(texts, c.TextContent.Text)
		}
	}
	return strings.Join(texts, "\n")
}
