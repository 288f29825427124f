package tablequery

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/llmutils"
	"github.com/effective-security/finrecon/pkg/prompts"
	"github.com/effective-security/finrecon/pkg/schema"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

// QueryRequest is the input of the tool
type QueryRequest struct {
	Input string `json:"input" yaml:"input" validate:"required" jsonschema:"title=input,description=The question about the table in natural language."`
}

// QueryResult is the output of the tool
type QueryResult struct {
	SQL    string `json:"sql" yaml:"sql"`
	Output string `json:"output" yaml:"output"`
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Tool answers natural language questions about a dataset
type Tool struct {
	engine      *Engine
	llm         llms.Model
	name        string
	description string
	synthesize  bool
	verbose     io.Writer
	callOptions []llms.CallOption
}

var _ tools.Tool[QueryRequest, QueryResult] = (*Tool)(nil)

// Option configures the Tool
type Option func(*Tool)

// WithName overrides the tool name, default is the dataset name
func WithName(name string) Option {
	return func(t *Tool) {
		t.name = name
	}
}

// WithDescription sets the tool description
func WithDescription(description string) Option {
	return func(t *Tool) {
		t.description = description
	}
}

// WithSynthesis enables or disables the answer synthesis,
// when disabled the tool returns the query output.
func WithSynthesis(enabled bool) Option {
	return func(t *Tool) {
		t.synthesize = enabled
	}
}

// WithVerbose writes the generated SQL and the query output to w
func WithVerbose(w io.Writer) Option {
	return func(t *Tool) {
		t.verbose = w
	}
}

// WithCallOptions sets options for the model calls
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(t *Tool) {
		t.callOptions = append(t.callOptions, opts...)
	}
}

// New returns the tool over the engine
func New(engine *Engine, llm llms.Model, opts ...Option) *Tool {
	ds := engine.Dataset()
	t := &Tool{
		engine:     engine,
		llm:        llm,
		name:       ds.Name(),
		synthesize: true,
		description: fmt.Sprintf("Query the %s table with a question in natural language, the table has columns: %s",
			ds.Name(), strings.Join(ds.ColumnNames(), ", ")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	params, err := schema.For[QueryRequest]()
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "schema", "err", err.Error())
		return nil
	}
	return params
}

// Run translates the question into SQL, executes it,
// and synthesizes the answer.
func (t *Tool) Run(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("invalid request: empty input")
	}

	query, err := t.generateSQL(ctx, req.Input)
	if err != nil {
		return nil, err
	}

	res, err := t.engine.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	out := &QueryResult{
		SQL:    query,
		Output: res.String(),
	}
	if t.verbose != nil {
		fmt.Fprintf(t.verbose, "> SQL query:\n%s\n> SQL output:\n%s", out.SQL, llmutils.EnsureEndsWithNewline(out.Output))
	}

	if t.synthesize {
		out.Answer, err = t.synthesizeAnswer(ctx, req.Input, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Call implements tools.ITool
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.DecodeInput[QueryRequest](input)
	if err != nil {
		return "", err
	}
	out, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	if out.Answer != "" {
		return out.Answer, nil
	}
	return out.Output, nil
}

func (t *Tool) generateSQL(ctx context.Context, question string) (string, error) {
	preview, err := t.engine.Preview(ctx)
	if err != nil {
		return "", err
	}

	ds := t.engine.Dataset()
	columns := make([]prompts.Column, 0, len(ds.columns))
	for _, c := range ds.columns {
		columns = append(columns, prompts.Column{Name: c.Name, Type: string(c.Type)})
	}

	chat, err := prompts.FormatChat(prompts.SQLQuerySystem, prompts.SQLQueryHuman, prompts.SQLQueryData{
		Table:        ds.Name(),
		Columns:      columns,
		Preview:      preview.String(),
		PreviewLimit: PreviewRows,
		Question:     question,
	})
	if err != nil {
		return "", err
	}

	text, err := t.generate(ctx, chat.Messages())
	if err != nil {
		return "", errors.WithMessagef(err, "failed to generate SQL for %s", t.name)
	}
	return CleanSQL(text), nil
}

func (t *Tool) synthesizeAnswer(ctx context.Context, question string, res *QueryResult) (string, error) {
	prompt, err := prompts.Synthesis.Format(prompts.SynthesisData{
		Question: question,
		SQL:      res.SQL,
		Result:   res.Output,
	})
	if err != nil {
		return "", err
	}

	text, err := t.generate(ctx, []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, prompt)})
	if err != nil {
		return "", errors.WithMessagef(err, "failed to synthesize answer for %s", t.name)
	}
	return strings.TrimSpace(text), nil
}

func (t *Tool) generate(ctx context.Context, msgs []llms.Message) (string, error) {
	resp, err := t.llm.GenerateContent(ctx, msgs, t.callOptions...)
	if err != nil {
		return "", err
	}
	choice, err := resp.FirstChoice()
	if err != nil {
		return "", err
	}
	return choice.Content, nil
}

// CleanSQL removes markdown fences and labels around the generated query
func CleanSQL(text string) string {
	q := llmutils.TrimBackticks(text)
	for _, prefix := range []string{"sql\n", "sql ", "SQLQuery:", "SQL:"} {
		if len(q) >= len(prefix) && strings.EqualFold(q[:len(prefix)], prefix) {
			q = strings.TrimSpace(q[len(prefix):])
		}
	}
	return strings.TrimSpace(q)
}
