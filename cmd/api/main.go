// @title           Platform API
// @version         1.0
// @description     Token-authenticated user API.
// @BasePath        /
// @securityDefinitions.apikey  APIKey
// @in                          header
// @name                        X-API-Key
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/edu-platform/platform-api/docs"
	"github.com/edu-platform/platform-api/internal/app"
	"github.com/edu-platform/platform-api/internal/pkg/config"
	"github.com/edu-platform/platform-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "platform-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, app.WithMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}

	e := application.Router()

	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Driver).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("closing connections")
	}
}
