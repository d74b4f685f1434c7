package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"avigoBot/config"
	"avigoBot/internal/app"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting bot", slog.String("env", cfg.Env))

	application := app.New(
		log,
		cfg.Telegram,
		&cfg.Postgres,
		cfg.Redis.Addr,
		cfg.Redis.SessionTTL,
		cfg.HTTP,
		cfg.Click,
		cfg.Notify,
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := application.Telegram.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("telegram bot stopped", "error", err)
		}
	}()

	go application.HTTPServer.MustRun()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	<-stop
	log.Info("stopping bot")

	cancel()
	application.HTTPServer.Stop()

	log.Info("bot stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelDebug},
			),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelDebug},
			),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		)
	}

	return log
}
