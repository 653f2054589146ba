package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/api"
	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/content"
	"github.com/stockguardian/guardian-bot/internal/digest"
	"github.com/stockguardian/guardian-bot/internal/events"
	"github.com/stockguardian/guardian-bot/internal/holdings"
	"github.com/stockguardian/guardian-bot/internal/llm"
	"github.com/stockguardian/guardian-bot/internal/monitoring"
	"github.com/stockguardian/guardian-bot/internal/notifications"
	"github.com/stockguardian/guardian-bot/internal/rules"
	"github.com/stockguardian/guardian-bot/internal/scheduler"
	"github.com/stockguardian/guardian-bot/internal/sentiment"
	"github.com/stockguardian/guardian-bot/internal/sources"
	"github.com/stockguardian/guardian-bot/internal/storage"
	"github.com/stockguardian/guardian-bot/internal/tracing"
)

var version = "dev"

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Infof("Starting Stock Guardian %s", version)

	if err := tracing.Init(cfg.TracingEnabled, version); err != nil {
		logrus.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
	}

	var producer *events.Producer
	var extraChannels []notifications.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		extraChannels = append(extraChannels, producer)
		logrus.Infof("Publishing events to Kafka topic %s", cfg.KafkaTopic)
	}

	notifier := notifications.NewService(cfg, extraChannels...)
	logrus.Infof("Notification channels: %v", notifier.Channels())

	summarizer := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	analyzer := sentiment.NewVaderAnalyzer()
	contentService := content.NewService(db, analyzer, cfg.PublisherWeights)
	ruleService := rules.NewService(db, cfg.Thresholds)

	newsSources := sources.NewNewsSourcesFromConfig(cfg)
	socialSources := sources.NewSocialSourcesFromConfig(cfg)
	logrus.Infof("News sources: %v, social sources: %v", newsSources.Names(), socialSources.Names())

	deps := monitoring.Dependencies{
		Store:      db,
		Quotes:     sources.NewQuoteSourceFromConfig(cfg, rdb),
		News:       newsSources,
		Social:     socialSources,
		Content:    contentService,
		Analyzer:   analyzer,
		Rules:      ruleService,
		Summarizer: summarizer,
		Notifier:   notifier,
	}
	digestService := digest.NewService(db, summarizer, notifier, cfg.Workers)
	if producer != nil {
		deps.Publisher = producer
		digestService.WithPublisher(producer)
	}
	agentService := monitoring.NewService(cfg, deps)

	if cfg.StorageAccount != "" {
		blobs, err := storage.NewAzureStorage(context.Background(), cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize report archive: %v", err)
		}
		digestService.WithArchive(storage.NewReportArchive(blobs))
		logrus.Infof("Archiving daily reports to container %s", cfg.StorageContainer)
	}

	schedulerService := scheduler.NewService(cfg, agentService, digestService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	handler := api.NewHandler(db,
		holdings.NewService(db),
		ruleService,
		contentService,
		api.Runners{Agent: agentService, Digest: digestService},
		api.Options{
			DefaultUserEmail: cfg.DefaultUserEmail,
			BulletWindow:     cfg.BulletWindow,
			BulletLimit:      cfg.BulletLimit,
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	select {
	case <-schedulerService.Stop().Done():
	case <-ctx.Done():
		logrus.Warn("Timed out waiting for scheduled jobs to finish")
	}

	if err := tracing.Shutdown(ctx); err != nil {
		logrus.Errorf("Failed to flush traces: %v", err)
	}

	logrus.Info("Server exited")
}
