package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.MustSetup(log.ComponentApp)

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	result := cli.MustOpenBackend(ctx, cfg, logger)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Analyzer:           services.NewAnalyticsService(result.Backend),
		Store:              result.Backend,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"cors_origins", strings.Join(cfg.CORSAllowedOrigins, ","))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			return
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
	}
	logger.Info("Server stopped gracefully")
}
