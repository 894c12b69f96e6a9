package cli

import (
	"context"

	"github.com/spf13/cobra"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumerag",
	Short: "Resume and job description evaluation with retrieval-augmented generation",
	Long: `resumerag compares a resume against a job description. Both documents are
chunked and embedded, the passages relevant to each task are retrieved, and a
hosted LLM produces an ATS-style analysis, mock interview questions, answer
feedback, ideal answers, or free-form answers.

It runs as an HTTP server (serve), as an AMQP queue worker (worker), or as
one-shot commands over local files.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger available to every
// subcommand through the context.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(idealCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}
