package main

import (
	"context"
	"errors"
	"os"
	"time"

	"studioledger/internal/amqp"
	"studioledger/internal/cli"
	"studioledger/internal/log"
	"studioledger/internal/sheets"
	gsheet "studioledger/internal/sheets/google"
	"studioledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting studioledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	res := cli.OpenBackend(startCtx, logger, cfg)
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	var writer sheets.SummaryWriter
	if cfg.ExportEnabled() {
		client, err := gsheet.New(startCtx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			startCancel()
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = worker.NewLogWriter(logger)
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, logging summaries only")
	}
	startCancel()

	exporter := worker.NewExportWorker(res.Backend, writer, cfg.Thresholds, cfg.ExportConcurrency).WithLogger(logger)

	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = c
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
	})

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup export...")
	if _, err := exporter.ExportAll(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}

	stopSchedule, err := exporter.StartSchedule(ctx, cfg.ExportSchedule)
	if err != nil {
		logger.Error("Failed to start export schedule", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.Consume(ctx, exporter.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	stopSchedule()
	exported, failed := exporter.Stats()
	logger.Info("Worker shutdown complete", "exported", exported, "failed", failed)
}
