package main

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/effective-security/finrecon/financeserver"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/finrecon/tools/mcptools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs the CLI when the test binary is started as the tool server
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == mcptools.ServeCommand {
		rootCmd.SetArgs(os.Args[1:])
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestLaunchServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stderr bytes.Buffer
	s, err := mcptools.Launch(ctx, mcptools.Config{}, &stderr)
	require.NoError(t, err)

	list, err := s.Tools(ctx)
	require.NoError(t, err)
	byName := map[string]tools.ITool{}
	for _, tool := range list {
		byName[tool.Name()] = tool
	}
	require.Len(t, byName, 2)
	require.Contains(t, byName, financeserver.ToolGetExchangeRate)
	require.Contains(t, byName, financeserver.ToolGetFeeDescription)

	res, err := byName[financeserver.ToolGetExchangeRate].Call(ctx, `{"currency":"usd"}`)
	require.NoError(t, err)
	assert.Equal(t, "7.2", res)

	res, err = byName[financeserver.ToolGetExchangeRate].Call(ctx, `{"currency":"gbp"}`)
	require.NoError(t, err)
	assert.Equal(t, "1.0", res)

	res, err = byName[financeserver.ToolGetFeeDescription].Call(ctx, `{"amount":3000}`)
	require.NoError(t, err)
	assert.Equal(t, financeserver.FeeInternational, res)

	res, err = byName[financeserver.ToolGetFeeDescription].Call(ctx, `{"amount":1000}`)
	require.NoError(t, err)
	assert.Equal(t, financeserver.FeeStandard, res)

	// the server exits on closed stdin, Close waits for the process
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// stderr of the child is forwarded, and complete after Close
	logs := stderr.String()
	assert.Contains(t, logs, "serving")
	assert.Contains(t, logs, "stopped")
}
