package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.MustSetup(log.ComponentAlerts)
	logger.Info("Starting analytics-worker")

	if !cfg.MessagingEnabled() {
		logger.Error("analytics-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	result := cli.MustOpenBackend(ctx, cfg, logger)
	defer result.Cleanup()

	client, err := amqp.NewClient(amqp.Config{
		URL:         cfg.AMQPURL,
		Exchange:    cfg.AMQPExchange,
		EventsQueue: cfg.AMQPEventsQueue,
		AlertsQueue: cfg.AMQPAlertsQueue,
	})
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		return
	}
	defer client.Close()

	alerts := worker.NewAlertWorker(services.NewAnalyticsService(result.Backend), client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.ConsumeTransactionEvents(ctx, alerts.HandleTransactionEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
		}
		cancel()
	}()
	logger.Info("Consuming transaction events", "queue", cfg.AMQPEventsQueue, "alerts_queue", cfg.AMQPAlertsQueue)

	<-ctx.Done()

	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
