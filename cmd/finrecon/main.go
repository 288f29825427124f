package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/effective-security/finrecon/financeserver"
	"github.com/effective-security/finrecon/reconcile"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon", "cmd")

var (
	// Global flags
	debug   bool
	envFile string

	// Reconcile flags
	configFile  string
	logDir      string
	verbose     bool
	timeout     time.Duration
	printConfig bool
)

var rootCmd = &cobra.Command{
	Use:   "finrecon",
	Short: "finrecon - AI assisted reconciliation of transactions against the bank statement",
	Long: `finrecon reconciles the internal transaction records against the bank statement.

The agent queries both tables with natural language questions,
and uses the finance tools server to explain the amount differences
with fees and exchange rates.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		if debug {
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		}
	},
	RunE: runReconcile,
}

// serveCmd runs the finance tools server over stdio
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the finance tools over stdio",
	Long: `Serves get_exchange_rate and get_fee_description tools
over the standard input and output.
The command is started by reconcile as a child process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// reconcileCmd runs one reconciliation
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the internal records against the bank statement",
	Long: `Starts the finance tools server, runs the agent with the reconciliation request,
and prints the report. The console output is saved to the run log file.

Example:
  finrecon reconcile --config finrecon.yaml --log-dir logs --verbose`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file with the API key")

	for _, c := range []*cobra.Command{rootCmd, reconcileCmd} {
		c.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (default: DeepSeek from the environment)")
		c.Flags().StringVar(&logDir, "log-dir", "", "Folder of the run log (default: current)")
		c.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the tool outputs, SQL queries and run statistics")
		c.Flags().DurationVar(&timeout, "timeout", 0, "Run timeout, no timeout by default")
		c.Flags().BoolVar(&printConfig, "print-config", false, "Print the configuration with masked secrets and exit")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	logger.KV(xlog.INFO, "status", "serving", "pid", os.Getpid())
	return financeserver.ServeStdio(ctx, os.Stdin, os.Stdout)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := reconcile.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg, err := reconcile.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if logDir != "" {
		cfg.Log.Dir = logDir
	}
	if verbose {
		cfg.Verbose = true
	}

	if printConfig {
		masked := *cfg
		masked.LLM = cfg.LLM.Masked()
		out, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	return reconcile.Run(ctx, cfg, cmd.OutOrStdout())
}
