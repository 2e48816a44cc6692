package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/infra"
	"github.com/flexyearn/flexyearn/internal/logging"
	"github.com/flexyearn/flexyearn/internal/notification"
	"github.com/flexyearn/flexyearn/internal/routes"
	"github.com/flexyearn/flexyearn/internal/scheduler"
	"github.com/flexyearn/flexyearn/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)
	ctx := context.Background()

	stores, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open stores", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("close stores", "error", err)
		}
	}()

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		logger.Error("connect telegram", "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		conn, err := infra.NewAMQPConnection(cfg.AMQPURL)
		if err != nil {
			logger.Error("connect amqp", "error", err)
			os.Exit(1)
		}
		amqpPublisher, err := events.NewAMQPPublisher(conn, cfg.AMQPExchange)
		if err != nil {
			conn.Close()
			logger.Error("init amqp publisher", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       stores.DB,
		Cache:    stores.Cache,
		Logger:   logger,
		Notifier: notifier,
		Events:   publisher,
	}, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	jobs, err := scheduler.New(srv.Sessions(), "", logger)
	if err != nil {
		logger.Error("build scheduler", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	jobs.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.OperatorChatID == 0 {
		logger.Warn("telegram operator chat not configured, withdrawals are only logged")
		return notification.NewLoggerNotifier(logger), nil
	}
	return notification.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint, cfg.Telegram.OperatorChatID, cfg.Telegram.RequestTimeout)
}
