package cli

import (
	"github.com/spf13/cobra"

	"resumerag/internal/queue"
	"resumerag/internal/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis jobs from the message queue",
	Long: `Start a queue worker. Jobs arrive on the configured AMQP queue and name
the object-storage keys of the resume and job description. Each job is run
through the same evaluator as the HTTP API and its status updates are
published to the update exchange, routed by job ID.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	rt, err := newRuntime(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	fetcher, err := storage.NewS3Fetcher(ctx, cfg.Storage, cfg.App.MaxFileSize)
	if err != nil {
		return err
	}

	conn, err := queue.Connect(cfg.Queue)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close queue connection", "error", err)
		}
	}()

	publisher, err := queue.NewPublisher(conn, cfg.Queue.UpdateExchange)
	if err != nil {
		return err
	}

	processor := queue.NewProcessor(fetcher, rt.evaluator, publisher, rt.om.Metrics(), logger)

	logger.Info("Starting queue worker",
		"queue", cfg.Queue.JobQueue,
		"exchange", cfg.Queue.UpdateExchange,
		"workers", cfg.Queue.Workers,
		"bucket", cfg.Storage.Bucket)

	if err := queue.NewConsumer(conn, cfg.Queue, processor, logger).Run(ctx); err != nil {
		return err
	}
	logger.Info("Queue worker stopped")
	return nil
}
