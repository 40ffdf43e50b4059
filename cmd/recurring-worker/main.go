package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.MustSetup(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	if cfg.DataBackend == config.BackendMemory {
		logger.Error("recurring-worker needs a persistent backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	result := cli.MustOpenBackend(ctx, cfg, logger)
	defer result.Cleanup()

	// Transaction events feed the analytics-worker's budget alerts
	var publisher services.TransactionPublisher
	if cfg.MessagingEnabled() {
		client, err := amqp.NewClient(amqp.Config{
			URL:         cfg.AMQPURL,
			Exchange:    cfg.AMQPExchange,
			EventsQueue: cfg.AMQPEventsQueue,
			AlertsQueue: cfg.AMQPAlertsQueue,
		})
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPEventsQueue)
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	processor := services.NewRecurringProcessor(result.Backend, publisher, cfg.RecurringInterval)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recurring processor", log.FieldError, err.Error())
		return
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", log.FieldError, err.Error())
	}
	logger.Info("Recurring-worker shutdown complete")
}
