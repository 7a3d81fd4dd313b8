package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/linechat/internal/chat"
	"github.com/Tyrowin/linechat/internal/filesrv"
	"github.com/Tyrowin/linechat/internal/logging"
	"github.com/Tyrowin/linechat/internal/metrics"
	"github.com/Tyrowin/linechat/internal/server"
	"github.com/Tyrowin/linechat/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	cfg := server.NewConfigFromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(cfg *server.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("version", version.Build().String()).Msg("Starting linechat")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	rooms := chat.NewRooms(cfg.RoomCapacity, observer)
	handler := chat.NewHandler(chat.NewNames(), rooms,
		chat.WithLogger(logger.With().Str("component", "chat").Logger()),
		chat.WithObserver(observer),
		chat.WithRateLimit(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
	)

	errCh := make(chan error, 3)

	chatServer := server.NewTCPServer(cfg.ChatAddr, server.NewChatService(handler, *cfg),
		logger.With().Str("component", "tcp").Logger())
	go func() {
		if err := chatServer.ListenAndServe(ctx); err != nil {
			errCh <- err
		}
	}()

	var fileServer *server.TCPServer
	if cfg.FileAddr != "" {
		fileLogger := logger.With().Str("component", "file").Logger()
		fileServer = server.NewTCPServer(cfg.FileAddr, filesrv.New(fileLogger), fileLogger)
		go func() {
			if err := fileServer.ListenAndServe(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var (
		httpServer *http.Server
		gateway    *server.Gateway
	)
	if cfg.HTTPAddr != "" {
		httpLogger := logger.With().Str("component", "http").Logger()
		gateway = server.NewGateway(ctx, handler, *cfg, httpLogger)
		httpServer = server.CreateServer(cfg.HTTPAddr, server.SetupRoutes(gateway, metrics.Handler(reg)))
		go func() {
			if err := server.StartServer(httpServer, httpLogger); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Listener failed, shutting down")
	}
	stop()

	var shutdownErrs []error
	if httpServer != nil {
		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("http: %w", err))
		}
		if err := gateway.Shutdown(cfg.ShutdownTimeout); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("gateway: %w", err))
		}
	}
	if err := chatServer.Shutdown(cfg.ShutdownTimeout); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("chat: %w", err))
	}
	if fileServer != nil {
		if err := fileServer.Shutdown(cfg.ShutdownTimeout); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("file: %w", err))
		}
	}

	if err := errors.Join(shutdownErrs...); err != nil {
		logger.Warn().Err(err).Msg("Graceful shutdown incomplete")
	} else {
		logger.Info().Msg("Server stopped")
	}
	return runErr
}
