package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/bot"
	"github.com/xaenox/scribly/internal/logging"
	"github.com/xaenox/scribly/internal/storage"
	"github.com/xaenox/scribly/internal/titler"
	"github.com/xaenox/scribly/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file, empty for env only")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is not set", zap.String("path", *configPath))
	}

	// Initialize session storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory session storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL session storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Titles for quick notes
	var tl titler.Titler = titler.NewSimpleTitler(titler.MaxTitleLength)
	if cfg.OpenAI.APIKey != "" {
		tl = titler.NewGPTTitler(titler.GPTConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, logger)
	}

	client, err := api.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to create API client", zap.Error(err))
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.Debug, client, store, tl, logger, cfg.API.Timeout)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Bot started", zap.String("api", cfg.API.BaseURL))
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}
