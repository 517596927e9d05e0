// Package app wires configuration into the running services: storage,
// credentials, and the model client provider.
package app

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/faceforge/faceforge/internal/agent"
	"github.com/faceforge/faceforge/internal/config"
	"github.com/faceforge/faceforge/internal/credential"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/project"
)

// App bundles every long-lived service the server needs.
type App struct {
	Config      *config.Config
	Logger      log.Logger
	Projects    *project.Store
	Credentials *credential.Store
	Provider    *agent.Provider

	// Limiter smooths model calls across all tenants.
	Limiter *rate.Limiter
}

// Setup validates config and constructs all services. The default model
// client is not built here; the provider creates it lazily on first use so a
// server without a configured key can still serve credential and project
// endpoints.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app setup: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	projects, err := project.NewStore(cfg.StorageDir, logger)
	if err != nil {
		return nil, fmt.Errorf("app setup: %w", err)
	}

	credentials, err := credential.NewStore(cfg.CredentialDB, logger)
	if err != nil {
		return nil, fmt.Errorf("app setup: %w", err)
	}

	provider := agent.NewProvider(agent.ClientConfig{
		APIKey:          cfg.APIKey,
		ModelName:       cfg.ModelName,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		EnableReasoning: cfg.EnableReasoning,
	}, credentials, logger)

	logger.Info("application wired",
		"model", cfg.ModelName,
		"storage_dir", cfg.StorageDir,
		"has_default_key", cfg.APIKey != "")

	return &App{
		Config:      cfg,
		Logger:      logger,
		Projects:    projects,
		Credentials: credentials,
		Provider:    provider,
		Limiter:     rate.NewLimiter(2, 5),
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Credentials != nil {
		if err := a.Credentials.Close(); err != nil {
			return fmt.Errorf("app close: %w", err)
		}
	}
	return nil
}
