package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/faceforge/faceforge/internal/credential"
	"github.com/faceforge/faceforge/internal/log"
)

// ErrNoAPIKey indicates neither the caller nor the server config supplies a
// model credential.
var ErrNoAPIKey = errors.New("no api key available")

// Provider hands out model clients by caller identity. A client with a
// stored credential gets a dedicated instance bound to its own key; everyone
// else shares the lazily built default instance backed by the server's key.
type Provider struct {
	defaults    ClientConfig
	credentials *credential.Store
	logger      log.Logger

	defaultOnce   sync.Once
	defaultClient Client
	defaultErr    error

	mu      sync.Mutex
	clients map[string]Client // keyed by credential hash

	build func(ctx context.Context, cfg ClientConfig) (Client, error)
}

// ProviderOption customizes provider construction.
type ProviderOption func(*Provider)

// WithClientBuilder overrides how model clients are constructed. Used by
// tests to avoid real plugin initialization.
func WithClientBuilder(build func(ctx context.Context, cfg ClientConfig) (Client, error)) ProviderOption {
	return func(p *Provider) { p.build = build }
}

// NewProvider creates a provider. The credential store may be nil, in which
// case every caller shares the default client.
func NewProvider(defaults ClientConfig, credentials *credential.Store, logger log.Logger, opts ...ProviderOption) *Provider {
	if logger == nil {
		logger = log.NewNop()
	}
	p := &Provider{
		defaults:    defaults,
		credentials: credentials,
		logger:      logger,
		clients:     make(map[string]Client),
		build: func(ctx context.Context, cfg ClientConfig) (Client, error) {
			return NewGenkitClient(ctx, cfg)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ForClient resolves the model client for a caller. A stored per-client key
// wins over the server default; with neither, ErrNoAPIKey.
func (p *Provider) ForClient(ctx context.Context, clientID string) (Client, error) {
	if p.credentials != nil && clientID != "" {
		key, err := p.credentials.Get(ctx, clientID)
		switch {
		case err == nil:
			return p.forKey(ctx, key, clientID)
		case errors.Is(err, credential.ErrNotFound):
			// fall through to the default client
		default:
			return nil, fmt.Errorf("resolve client credential: %w", err)
		}
	}
	return p.Default(ctx)
}

// forKey returns a cached client for the key or builds one. The cache is
// keyed by credential hash so replacing a client's key yields a fresh
// instance.
func (p *Provider) forKey(ctx context.Context, key, clientID string) (Client, error) {
	hash := credential.Hash(key)

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[hash]; ok {
		return c, nil
	}

	cfg := p.defaults
	cfg.APIKey = key
	c, err := p.build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build client for %s: %w", clientID, err)
	}
	p.clients[hash] = c
	p.logger.Info("model client created", "client_id", clientID, "model", cfg.ModelName)
	return c, nil
}

// Default returns the shared default client, building it on first use.
func (p *Provider) Default(ctx context.Context) (Client, error) {
	p.defaultOnce.Do(func() {
		if p.defaults.APIKey == "" {
			p.defaultErr = ErrNoAPIKey
			return
		}
		p.defaultClient, p.defaultErr = p.build(ctx, p.defaults)
		if p.defaultErr == nil {
			p.logger.Info("default model client created", "model", p.defaults.ModelName)
		}
	})
	return p.defaultClient, p.defaultErr
}
