package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumerag/internal/config"
	"resumerag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for resume evaluation",
	Long: `Start an HTTP server that provides REST API endpoints for resume evaluation.

Available endpoints:
- POST /resume/analyze: ATS-style analysis of a resume against a job description
- POST /interview/generate: Mock interview questions
- POST /answer-feedback: Feedback on an interview answer
- POST /ideal-answer: Ideal answer to an interview question
- POST /ask: Free-form question about the documents
- GET /history/resume, /history/interview: Saved results for the caller
- GET /health: Health check endpoint
- GET /stats: Server statistics, model availability and rate limiting info
- GET /metrics/platform: Resumes analyzed and questions generated

Requests are JSON or multipart/form-data; uploads must be PDF.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if err := applyServeFlags(cmd, &cfg.Server); err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Validate TLS configuration after flags and Vault content are applied
	if err := cfg.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	opts := server.Options{
		Config:        cfg,
		Version:       Version,
		Evaluator:     rt.evaluator,
		Models:        rt.ai,
		History:       rt.history,
		Observability: rt.om,
		Logger:        logger,
	}

	vault, err := config.NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return err
	}
	if vault != nil {
		opts.Vault = vault
	}

	return server.New(opts).Start(ctx)
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, sc *config.ServerConfig) error {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"port", &sc.Port},
		{"host", &sc.Host},
		{"tls-mode", &sc.TLS.Mode},
		{"cert-file", &sc.TLS.CertFile},
		{"key-file", &sc.TLS.KeyFile},
		{"ca-file", &sc.TLS.CAFile},
	}

	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return err
		}
		*o.dst = value
	}
	return nil
}
