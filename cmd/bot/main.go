package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lmercier/modbot/internal/bot"
	"github.com/lmercier/modbot/internal/classifier"
	"github.com/lmercier/modbot/internal/models"
	"github.com/lmercier/modbot/internal/storage"
	"github.com/lmercier/modbot/internal/telemetry"
	"github.com/lmercier/modbot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	defaults := models.GuildDefaults{
		ModRoleID:    cfg.Defaults.ModRoleID,
		ModChannelID: cfg.Defaults.ModChannelID,
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage(defaults)
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, defaults)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the moderation oracle client
	clf := classifier.NewMistralClassifier(
		cfg.Mistral.APIKey,
		cfg.Mistral.BaseURL,
		cfg.Mistral.Model,
		cfg.Mistral.Timeout,
		logger,
	)

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	// Initialize bot
	b, err := bot.New(
		cfg.Discord.Token,
		cfg.Discord.CommandPrefix,
		cfg.Bot.Name,
		cfg.Bot.Version,
		store,
		clf,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	if err := b.Stop(); err != nil {
		logger.Error("Failed to close discord session", zap.Error(err))
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
