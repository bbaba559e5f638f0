package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/fetcher"
	getMonitors "pricewatch/internal/http-server/handlers/monitors/get"
	getByID "pricewatch/internal/http-server/handlers/monitors/get_by_id"
	"pricewatch/internal/http-server/handlers/monitors/history"
	"pricewatch/internal/http-server/handlers/scrape"
	"pricewatch/internal/lib/jwt"
	sl "pricewatch/internal/lib/logger"
	authMiddleware "pricewatch/internal/middleware/auth"
	"pricewatch/internal/monitors"
	"pricewatch/internal/notifier"
	"pricewatch/internal/rabbitmq"
	"pricewatch/internal/scraper"
	"pricewatch/internal/storage/postgres"
	"pricewatch/internal/storage/redis"
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

	log.Info("starting pricewatch", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	jwtParser := jwt.New(cfg.JWTSecret)

	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.DefaultTTL)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer postgresClient.Close()

	if err := postgresClient.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	rabbitMQClient, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.MineQueue)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer rabbitMQClient.Close()

	rabbitMQConsumer := rabbitmq.NewConsumer(
		rabbitMQClient.Channel,
		log,
		cfg.RabbitMQ.MineQueue,
		cfg.RabbitMQ.WorkerPoolSize,
	)

	notifierClient := notifier.New(log, cfg.Notification)

	scraperService := scraper.New(
		log,
		buildPipelines(cfg),
		postgresClient,
		notifierClient,
	)

	monitorOp := monitors.New(postgresClient, redisClient)

	if err := rabbitMQConsumer.Consume(ctx, scraperService.HandleMineTask); err != nil {
		log.Error("failed to start mine consumer", sl.Err(err))
		os.Exit(1)
	}

	router := setupRouter(log, validator.New(), cfg, scraperService, monitorOp, jwtParser)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.ScrapeTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", slog.String("address", cfg.HTTPServer.Address))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", sl.Err(err))
	}

	log.Info("pricewatch stopped")
}

// buildPipelines binds every registered store to the fetcher its backend and
// render mode require. ScraperAPI clients are shared per render mode.
func buildPipelines(cfg *config.Config) map[string]scraper.StorePipeline {
	plain := fetcher.NewScraperAPI(cfg.ScraperAPI, false)
	rendered := fetcher.NewScraperAPI(cfg.ScraperAPI, true)
	zyte := fetcher.NewZyte(cfg.Zyte)

	pipelines := make(map[string]scraper.StorePipeline)

	for name, store := range extractor.Registry() {
		var f fetcher.Fetcher

		switch {
		case store.Backend == extractor.BackendZyte:
			f = zyte
		case store.Render:
			f = rendered
		default:
			f = plain
		}

		pipelines[name] = scraper.StorePipeline{
			Extractor: store.Extractor,
			Fetcher:   f,
		}
	}

	return pipelines
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	cfg *config.Config,
	scraperService *scraper.Service,
	monitorOp *monitors.MonitorOperator,
	jwtParser *jwt.JWTParser,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/scrape/{store}", scrape.New(log, scraperService, validate, cfg.HTTPServer.ScrapeTimeout))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.New(log, jwtParser))

		r.Get("/monitors", getMonitors.New(log, monitorOp))
		r.Get("/monitors/{id}", getByID.New(log, monitorOp))
		r.Get("/monitors/{id}/history", history.New(log, monitorOp))
	})

	return r
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
