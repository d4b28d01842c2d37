// Command overwatch supervises OpenHands coding-agent conversations with a
// reviewer LLM. It runs the worker HTTP surface (serve), one-shot reviews
// (watch), and the stop-directive scanner (scan).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath string
	verbose bool

	logger   *zap.Logger
	logLevel = zap.NewAtomicLevel()
)

var rootCmd = &cobra.Command{
	Use:   "overwatch",
	Short: "LLM supervisor for OpenHands coding-agent conversations",
	Long: `overwatch pairs an OpenHands coding-agent conversation with a reviewer
LLM. Agent events are forwarded to the reviewer together with the task and
the supervision rules; when the reviewer embeds a stop directive
(*[STOP]* CONTEXT: "reason" correction) in its reply, the agent is halted
and the reason and correction are surfaced to the operator.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel.SetLevel(zapcore.InfoLevel)
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		zcfg := zap.NewProductionConfig()
		zcfg.Level = logLevel
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
}

// applyLogLevel retunes the logger to the configured level. --verbose wins
// over configuration.
func applyLogLevel(level string) error {
	if verbose || level == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging.level %q: %w", level, err)
	}
	logLevel.SetLevel(parsed)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
