package reconcile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/assistants"
	"github.com/effective-security/finrecon/callbacks"
	"github.com/effective-security/finrecon/financeserver"
	"github.com/effective-security/finrecon/pkg/llmfactory"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/metricskey"
	"github.com/effective-security/finrecon/pkg/prompts"
	"github.com/effective-security/finrecon/runlog"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/finrecon/tools/mcptools"
	"github.com/effective-security/finrecon/tools/tablequery"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon", "reconcile")

const (
	// AgentName is the name of the reconciliation agent
	AgentName = "FinanceAgent"
	// AgentDescription is the description of the reconciliation agent
	AgentDescription = "Reconciles internal transaction records against the bank statement."
)

// RequiredTools are the tools the agent must have
var RequiredTools = []string{
	financeserver.ToolGetExchangeRate,
	financeserver.ToolGetFeeDescription,
	InternalRecords,
	BankStatement,
}

// Launcher starts the tool server and returns the connected session
type Launcher func(ctx context.Context, cfg mcptools.Config, stderr io.Writer) (*mcptools.Session, error)

type options struct {
	launcher Launcher
	llm      llms.Model
	toolLLM  llms.Model
	callback assistants.Callback
	usage    *Usage
}

func newOptions(opts ...Option) *options {
	o := &options{
		launcher: mcptools.Launch,
		callback: callbacks.NewNoop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the Session
type Option func(*options)

// WithLauncher overrides the tool server launcher, default is mcptools.Launch
func WithLauncher(launcher Launcher) Option {
	return func(o *options) {
		o.launcher = launcher
	}
}

// WithLLM overrides the models of the agent and the table tools,
// by default the models are created from the LLM configuration.
func WithLLM(agent, tool llms.Model) Option {
	return func(o *options) {
		o.llm = agent
		o.toolLLM = tool
	}
}

// WithCallback adds the callback to the agent events
func WithCallback(cb assistants.Callback) Option {
	return func(o *options) {
		o.callback = cb
	}
}

// WithUsage sets the metrics sink of the run,
// by default Run installs a new one.
func WithUsage(u *Usage) Option {
	return func(o *options) {
		o.usage = u
	}
}

// Session is the agent with its tools, created for one run
type Session struct {
	ID string

	remote    *mcptools.Session
	engines   []*tablequery.Engine
	tools     []tools.ITool
	assistant *assistants.Assistant
	stats     *callbacks.Stats
}

// NewSession launches the tool server, discovers its tools,
// builds the table tools and assembles the agent.
// The output of the tools and the agent events are printed to out.
func NewSession(ctx context.Context, cfg *Config, out io.Writer, opts ...Option) (_ *Session, err error) {
	o := newOptions(opts...)

	s := &Session{
		ID:    uuid.NewString(),
		stats: callbacks.NewStats(),
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	agentLLM, toolLLM, err := models(cfg, o)
	if err != nil {
		return nil, err
	}

	s.remote, err = o.launcher(ctx, cfg.Server, out)
	if err != nil {
		return nil, err
	}
	remoteTools, err := s.remote.Tools(ctx)
	if err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.INFO,
		"session", s.ID,
		"status", "discovered",
		"tools", len(remoteTools),
	)

	var tableOpts []tablequery.Option
	if cfg.Verbose {
		tableOpts = append(tableOpts, tablequery.WithVerbose(out))
	}
	if t := cfg.Temperature(); t != nil {
		tableOpts = append(tableOpts, tablequery.WithCallOptions(llms.WithTemperature(*t)))
	}

	var tableTools []tools.ITool
	for _, table := range SampleTables() {
		engine, err := tablequery.Open(ctx, table.Dataset)
		if err != nil {
			return nil, err
		}
		s.engines = append(s.engines, engine)
		tableTools = append(tableTools, tablequery.New(engine, toolLLM,
			append([]tablequery.Option{tablequery.WithDescription(table.Description)}, tableOpts...)...))
	}

	s.tools, err = MergeTools(remoteTools, tableTools)
	if err != nil {
		return nil, err
	}

	persona, err := prompts.Persona.Format(prompts.PersonaData{Tolerance: cfg.Tolerance})
	if err != nil {
		return nil, err
	}

	mode := callbacks.ModeDefault
	if cfg.Verbose {
		mode = callbacks.ModeVerbose
	}
	agentOpts := []assistants.Option{
		assistants.WithName(AgentName),
		assistants.WithDescription(AgentDescription),
		assistants.WithTools(s.tools...),
		assistants.WithCallback(callbacks.NewFanout(
			callbacks.NewPrinter(out, mode),
			callbacks.NewPackageLogger(logger),
			s.stats,
			o.callback,
		)),
	}
	if t := cfg.Temperature(); t != nil {
		agentOpts = append(agentOpts, assistants.WithTemperature(*t))
	}

	s.assistant, err = assistants.NewAssistant(agentLLM, persona, agentOpts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func models(cfg *Config, o *options) (llms.Model, llms.Model, error) {
	if o.llm != nil {
		toolLLM := o.toolLLM
		if toolLLM == nil {
			toolLLM = o.llm
		}
		return o.llm, toolLLM, nil
	}

	factory := llmfactory.New(cfg.LLM)
	agentLLM, err := factory.AssistantModel(AgentName)
	if err != nil {
		return nil, nil, err
	}
	// both tables share the model
	toolLLM, err := factory.ToolModel(InternalRecords)
	if err != nil {
		return nil, nil, err
	}
	return agentLLM, toolLLM, nil
}

// MergeTools returns the union of the remote and local tools,
// the tool names must be unique and include all RequiredTools.
func MergeTools(remote, local []tools.ITool) ([]tools.ITool, error) {
	all := make([]tools.ITool, 0, len(remote)+len(local))
	seen := make(map[string]bool, len(remote)+len(local))
	for _, t := range append(append([]tools.ITool{}, remote...), local...) {
		if seen[t.Name()] {
			return nil, errors.Errorf("duplicate tool: %s", t.Name())
		}
		seen[t.Name()] = true
		all = append(all, t)
	}

	var missing []string
	for _, name := range RequiredTools {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return all, nil
}

// Tools returns the tools of the agent
func (s *Session) Tools() []tools.ITool {
	return s.tools
}

// Stats returns the usage of the last run
func (s *Session) Stats() callbacks.RunStats {
	return s.stats.Stats()
}

// Run sends the request to the agent and returns the report
func (s *Session) Run(ctx context.Context, request string) (string, error) {
	logger.ContextKV(ctx, xlog.INFO,
		"session", s.ID,
		"status", "run",
		"tools", len(s.tools),
	)
	return s.assistant.Run(ctx, request)
}

// Close terminates the tool server and releases the tables
func (s *Session) Close() error {
	var err error
	if s.remote != nil {
		err = errors.CombineErrors(err, s.remote.Close())
	}
	for _, e := range s.engines {
		err = errors.CombineErrors(err, e.Close())
	}
	return err
}

// Run executes one reconciliation, the console output is captured to the run log.
// The credential is checked before the log is created.
func Run(ctx context.Context, cfg *Config, console io.Writer, opts ...Option) error {
	if err := cfg.CheckCredential(); err != nil {
		return err
	}

	o := newOptions(opts...)
	usage := o.usage
	if usage == nil {
		var err error
		if usage, err = NewUsage(); err != nil {
			return err
		}
	}

	started := time.Now()
	defer metricskey.PerfReconcileRun.MeasureSince(started, AgentName)

	return runlog.Capture(cfg.Log.Dir, cfg.Log.Prefix, started, console, func(w *runlog.Log) error {
		xlog.SetFormatter(xlog.NewStringFormatter(w))
		defer xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))

		fmt.Fprintln(w, "\n--- Starting reconciliation ---")

		s, err := NewSession(ctx, cfg, w, opts...)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.Close(); cerr != nil {
				logger.KV(xlog.WARNING, "session", s.ID, "reason", "close", "err", cerr.Error())
			}
		}()

		report, err := s.Run(ctx, cfg.Request)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "\n--- AI reconciliation report ---")
		fmt.Fprintln(w, strings.TrimSpace(report))
		if cfg.Verbose {
			fmt.Fprintf(w, "\n%s", s.Stats())
			fmt.Fprint(w, usage)
		}
		fmt.Fprintf(w, "\nLog saved to: %s\n", w.Path())
		return nil
	})
}
