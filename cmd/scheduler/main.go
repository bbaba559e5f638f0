package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pricewatch/internal/config"
	sl "pricewatch/internal/lib/logger"
	"pricewatch/internal/rabbitmq"
	"pricewatch/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting scheduler",
		slog.String("env", cfg.Env),
		slog.Duration("check_interval", cfg.CheckInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer postgresClient.Close()

	rabbitMQClient, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.MineQueue)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer rabbitMQClient.Close()

	producer := rabbitmq.NewProducer(rabbitMQClient.Channel, cfg.RabbitMQ.MineQueue)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	// First sweep runs at startup so restarts do not delay overdue monitors.
	publishDue(ctx, log, postgresClient, producer)

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return

		case <-ticker.C:
			publishDue(ctx, log, postgresClient, producer)
		}
	}
}

func publishDue(ctx context.Context, log *slog.Logger, repo *postgres.PostgresRepo, producer *rabbitmq.Producer) {
	const op = "scheduler.publishDue"

	log = log.With(slog.String("op", op))

	tasks, err := repo.MonitorsDue(ctx)
	if err != nil {
		log.Error("failed to query due monitors", sl.Err(err))
		return
	}

	if len(tasks) == 0 {
		log.Debug("no monitors due")
		return
	}

	published := 0

	for _, task := range tasks {
		if err := producer.PublishJSON(ctx, task); err != nil {
			log.Error("failed to publish mine task",
				sl.Err(err),
				slog.Int64("monitor_id", task.MonitorID),
			)

			continue
		}

		published++
	}

	log.Info("mine tasks published",
		slog.Int("due", len(tasks)),
		slog.Int("published", published),
	)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
