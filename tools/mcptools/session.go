package mcptools

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/schema"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/xlog"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/metoro-io/mcp-golang/transport/stdio"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon/tools", "mcptools")

const (
	// DiscoveryTimeout is the default bound of the server initialization
	DiscoveryTimeout = 30 * time.Second

	// ServeCommand is the argument to start the tool server
	// when the current executable is used
	ServeCommand = "serve"

	shutdownGrace = 2 * time.Second
)

// Config specifies the tool server process
type Config struct {
	// Command is the server executable, default is the current executable
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Args are the command arguments, default is `serve` for the current executable
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// DiscoveryTimeout bounds the server initialization
	DiscoveryTimeout time.Duration `json:"discovery_timeout,omitempty" yaml:"discovery_timeout,omitempty"`
}

// Session is a connection to MCP server
type Session struct {
	client    *mcp.Client
	transport transport.Transport
	info      *mcp.InitializeResponse

	cmd   *exec.Cmd
	stdin io.Closer

	// calls are serialized over the single connection
	lock      sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Launch starts the tool server process and connects to it over its stdio.
// Server's stderr is forwarded to the stderr writer.
// The process is killed when ctx is cancelled.
func Launch(ctx context.Context, cfg Config, stderr io.Writer) (*Session, error) {
	command := cfg.Command
	args := cfg.Args
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "failed to locate the current executable")
		}
		command = exe
		if len(args) == 0 {
			args = []string{ServeCommand}
		}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdout pipe")
	}
	if err = cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start tool server: %s", command)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "started",
		"command", command,
		"args", strings.Join(args, " "),
		"pid", cmd.Process.Pid,
	)

	timeout := cfg.DiscoveryTimeout
	if timeout <= 0 {
		timeout = DiscoveryTimeout
	}
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := NewSession(initCtx, stdio.NewStdioServerTransportWithIO(stdout, stdin))
	if err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	s.cmd = cmd
	s.stdin = stdin
	return s, nil
}

// NewSession initializes MCP client over the transport
func NewSession(ctx context.Context, t transport.Transport) (*Session, error) {
	client := mcp.NewClient(t)

	type result struct {
		info *mcp.InitializeResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := client.Initialize(ctx)
		done <- result{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = t.Close()
		return nil, errors.Wrap(ctx.Err(), "timed out initializing MCP client")
	case res := <-done:
		if res.err != nil {
			_ = t.Close()
			return nil, errors.Wrap(res.err, "failed to initialize MCP client")
		}
		s := &Session{
			client:    client,
			transport: t,
			info:      res.info,
		}
		logger.ContextKV(ctx, xlog.DEBUG, "status", "initialized")
		return s, nil
	}
}

// Info returns the initialization response of the server
func (s *Session) Info() *mcp.InitializeResponse {
	return s.info
}

// Tools returns handles for the tools advertised by the server
func (s *Session) Tools(ctx context.Context) ([]tools.ITool, error) {
	var list []tools.ITool
	var cursor *string
	for {
		s.lock.Lock()
		resp, err := s.client.ListTools(ctx, cursor)
		s.lock.Unlock()
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tools")
		}

		for _, t := range resp.Tools {
			params, err := schema.FromAny(t.InputSchema)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid input schema of tool %s", t.Name)
			}
			tool := &Tool{
				caller:     s,
				name:       t.Name,
				parameters: params,
			}
			if t.Description != nil {
				tool.description = *t.Description
			}
			list = append(list, tool)
		}

		if resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "discovered",
		"tools", len(list),
	)
	return list, nil
}

// CallTool invokes the tool on the server
func (s *Session) CallTool(ctx context.Context, name string, args any) (*mcp.ToolResponse, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.client.CallTool(ctx, name, args)
}

// Close closes the connection and terminates the server process.
// It is safe to call Close more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.stdin != nil {
			_ = s.stdin.Close()
		}
		if err := s.transport.Close(); err != nil {
			s.closeErr = errors.Wrap(err, "failed to close transport")
		}
		if s.cmd != nil {
			s.stopProcess()
		}
	})
	return s.closeErr
}

// stopProcess waits for the server to exit on closed stdin,
// and kills it after the grace period
func (s *Session) stopProcess() {
	exited := make(chan error, 1)
	go func() {
		exited <- s.cmd.Wait()
	}()

	select {
	case err := <-exited:
		logger.KV(xlog.DEBUG, "status", "exited", "pid", s.cmd.Process.Pid, "err", err)
	case <-time.After(shutdownGrace):
		_ = s.cmd.Process.Kill()
		err := <-exited
		logger.KV(xlog.DEBUG, "status", "killed", "pid", s.cmd.Process.Pid, "err", err)
	}
}
