package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcfg "github.com/Oniqq60/grant_tracker/internal/cfg"
	"github.com/Oniqq60/grant_tracker/internal/events"
	"github.com/Oniqq60/grant_tracker/internal/ipfs"
	"github.com/Oniqq60/grant_tracker/internal/logging"
	"github.com/Oniqq60/grant_tracker/internal/metrics"
	"github.com/Oniqq60/grant_tracker/internal/middleware"
	"github.com/Oniqq60/grant_tracker/internal/proof"
	"github.com/Oniqq60/grant_tracker/internal/routers"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "proof relay stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := metrics.NewRegistry()
	collectors := metrics.New(reg)

	client, err := ipfs.NewClient(ipfs.Options{
		BaseURL: cfg.IPFSAPIURL,
		Timeout: cfg.IPFSTimeout,
		Logger:  logger.Named("ipfs"),
	})
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("proof events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	intake, err := proof.NewIntake(cfg.UploadDir, cfg.MaxUploadBytes, logger.Named("intake"))
	if err != nil {
		return err
	}

	relay, err := proof.NewRelay(proof.RelayOptions{
		Storage:        client,
		Publisher:      publisher,
		GatewayURL:     cfg.GatewayURL,
		PublishTimeout: cfg.EventPublishTimeout,
		Metrics:        collectors,
		Logger:         logger.Named("relay"),
	})
	if err != nil {
		return err
	}

	cors := middleware.NewCORS(middleware.CORSOptions{
		AllowedOrigins: cfg.AllowedCORSOrigins,
	})

	router, err := routers.New(routers.Dependencies{
		Proof:      proof.NewHandler(intake, relay, client, collectors, logger.Named("proof")),
		Metrics:    collectors,
		Gatherer:   reg,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{cors},
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", server.Addr),
			zap.String("ipfs_api", cfg.IPFSAPIURL),
			zap.String("upload_dir", cfg.UploadDir),
		)
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
