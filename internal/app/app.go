// Package app wires configuration, logging, storage and the predictor for
// the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/predictor"
	"github.com/yourusername/value-tipster/internal/repository"
)

// App holds the dependencies shared by the command line tools
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Repos     *repository.Repositories
	Predictor predictor.Predictor
}

// LoadConfig reads .env, the YAML config and environment overrides, applies
// the AWS secrets overlay when enabled and validates the result.
func LoadConfig(ctx context.Context, path string) (*config.Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New opens the configured store and builds the predictor
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	format := cfg.App.LogFormat
	if cfg.IsProduction() {
		format = "json"
	}
	log := logger.NewLogger(cfg.App.LogLevel, format)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
		"driver":      cfg.Database.Driver,
		"predictor":   cfg.Predictor.Mode,
	}).Info("Starting")

	repos, err := repository.NewFromConfig(ctx, &cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	pred, err := predictor.NewFromConfig(cfg.Predictor, repos.Historical, log)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("failed to build predictor: %w", err)
	}

	return &App{Config: cfg, Logger: log, Repos: repos, Predictor: pred}, nil
}

// Close releases the predictor and the store
func (a *App) Close() error {
	return errors.Join(predictor.Close(a.Predictor), a.Repos.Close())
}
