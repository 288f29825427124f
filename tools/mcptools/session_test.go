package mcptools_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/financeserver"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/finrecon/tools/mcptools"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect starts in-process finance server over pipes
func connect(t *testing.T) *mcptools.Session {
	t.Helper()

	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- financeserver.ServeStdio(ctx, serverIn, serverOut)
	}()

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()

	s, err := mcptools.NewSession(initCtx, stdio.NewStdioServerTransportWithIO(clientIn, clientOut))
	require.NoError(t, err)
	require.NotNil(t, s.Info())

	t.Cleanup(func() {
		_ = s.Close()
		cancel()
		_ = clientOut.Close()
		_ = serverOut.Close()
		select {
		case <-served:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return s
}

func TestDiscovery(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	list, err := s.Tools(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	byName := map[string]tools.ITool{}
	for _, tool := range list {
		names = append(names, tool.Name())
		byName[tool.Name()] = tool
	}
	sort.Strings(names)
	assert.Equal(t, []string{"get_exchange_rate", "get_fee_description"}, names)

	rate := byName["get_exchange_rate"]
	assert.Equal(t, "Get the exchange rate for a currency.", rate.Description())
	require.NotNil(t, rate.Parameters())
	_, ok := rate.Parameters().Properties.Get("currency")
	assert.True(t, ok)

	fee := byName["get_fee_description"]
	assert.Equal(t, "Get description for potential fees based on amount.", fee.Description())
	_, ok = fee.Parameters().Properties.Get("amount")
	assert.True(t, ok)

	res, err := rate.Call(ctx, `{"currency":"usd"}`)
	require.NoError(t, err)
	assert.Equal(t, "7.2", res)

	res, err = rate.Call(ctx, `{"currency":"gbp"}`)
	require.NoError(t, err)
	assert.Equal(t, "1.0", res)

	res, err = fee.Call(ctx, `{"amount": 3000}`)
	require.NoError(t, err)
	assert.Equal(t, "Possible 3% international transaction fee", res)

	res, err = fee.Call(ctx, "```json\n{\"amount\": 150}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Standard transaction fee", res)

	_, err = fee.Call(ctx, "three thousand")
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))
}

func TestConcurrentCalls(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	list, err := s.Tools(ctx)
	require.NoError(t, err)

	var fee tools.ITool
	for _, tool := range list {
		if tool.Name() == financeserver.ToolGetFeeDescription {
			fee = tool
		}
	}
	require.NotNil(t, fee)

	amounts := []string{`{"amount":150}`, `{"amount":3000}`, `{"amount":1000}`, `{"amount":3090}`}
	exp := []string{financeserver.FeeStandard, financeserver.FeeInternational, financeserver.FeeStandard, financeserver.FeeInternational}
	got := make([]string, len(amounts))

	var wg sync.WaitGroup
	for i, in := range amounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := fee.Call(ctx, in)
			assert.NoError(t, err)
			got[i] = res
		}()
	}
	wg.Wait()
	assert.Equal(t, exp, got)
}

func TestNewSessionTimeout(t *testing.T) {
	// nobody reads the client requests
	_, clientOut := io.Pipe()
	clientIn, _ := io.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := mcptools.NewSession(ctx, stdio.NewStdioServerTransportWithIO(clientIn, clientOut))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLaunchFailure(t *testing.T) {
	_, err := mcptools.Launch(context.Background(), mcptools.Config{
		Command: "/nonexistent/finance-server",
	}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start tool server")
}

type fakeCaller struct {
	name string
	args any
	resp *mcp.ToolResponse
	err  error
}

func (f *fakeCaller) CallTool(_ context.Context, name string, args any) (*mcp.ToolResponse, error) {
	f.name = name
	f.args = args
	return f.resp, f.err
}

func TestTool(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		resp: mcp.NewToolResponse(mcp.NewTextContent("line1"), mcp.NewTextContent("line2")),
	}
	tool := mcptools.NewTool(caller, "echo", "Echo", nil)
	assert.Equal(t, "echo", tool.Name())
	assert.Equal(t, "Echo", tool.Description())
	assert.Nil(t, tool.Parameters())

	res, err := tool.Call(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", res)
	assert.Equal(t, "echo", caller.name)
	assert.Equal(t, map[string]any{}, caller.args)

	caller.err = errors.New("connection closed")
	_, err = tool.Call(context.Background(), `{"x":1}`)
	assert.EqualError(t, err, "failed to call echo: connection closed")

	assert.Empty(t, mcptools.TextContent(nil))
}
