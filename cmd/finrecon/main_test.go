package main

import (
	"bytes"
	"testing"

	"github.com/effective-security/finrecon/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configFile, logDir, verbose, printConfig = "", "", false, false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPrintConfig(t *testing.T) {
	t.Setenv(reconcile.CredentialEnv, "sk-secret")

	out, err := execute(t, "reconcile", "--print-config", "--log-dir", "logs", "--verbose", "--env", t.TempDir()+"/.env")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")

	var cfg reconcile.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "logs", cfg.Log.Dir)
	assert.True(t, cfg.Verbose)
	require.NotNil(t, cfg.LLM)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "***", cfg.LLM.Providers[0].Token)
	assert.Equal(t, reconcile.DefaultModel, cfg.LLM.Providers[0].DefaultModel)
}

func TestReconcile_MissingCredential(t *testing.T) {
	t.Setenv(reconcile.CredentialEnv, "")

	dir := t.TempDir()
	out, err := execute(t, "reconcile", "--log-dir", dir, "--env", dir+"/.env")
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrMissingCredential)
	// main prints the error once
	assert.NotContains(t, out, "Error:")
	assert.NotContains(t, out, "Usage:")
}

func TestServe_Args(t *testing.T) {
	_, err := execute(t, "serve", "extra")
	assert.Error(t, err)
}
