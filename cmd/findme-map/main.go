package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"findme/map-core/internal/config"
	"findme/map-core/internal/controller"
	"findme/map-core/internal/controls"
	"findme/map-core/internal/httpapi"
	"findme/map-core/internal/loading"
	"findme/map-core/internal/mapclient"
	"findme/map-core/internal/metrics"
	"findme/map-core/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := httpapi.NewLogger(config.DefaultLogLevel)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	reg := ui.New()

	client, err := mapclient.New(logger, mapclient.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.RequestTimeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	}, loading.New(reg.SetLoading), m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build api client")
	}

	locator, err := controls.NewLocator(cfg.Locate)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid locate setting")
	}

	mapCtl, err := controller.New(logger, controller.Deps{
		Config:  cfg,
		Client:  client,
		Locator: locator,
		UI:      reg,
		Metrics: m,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build map")
	}
	// The page stays up with an error toast when the surface cannot be built.
	if err := mapCtl.Init(ctx); err != nil {
		logger.Error().Err(err).Msg("map init failed")
	}
	defer mapCtl.Teardown()

	h := httpapi.NewHandler(logger, mapCtl, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("api", cfg.API.BaseURL).Msg("findme-map listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
