// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.faceforge/config.yaml)
//  3. Default values
//
// Sensitive data (the system model credential) is bound explicitly from the
// environment and masked in MarshalJSON. Validation is fail-fast: Load
// returns an error rather than deferring bad values to the first model call.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTimeout indicates the model-call timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid generate timeout")

	// ErrInvalidStorageDir indicates the storage directory is empty.
	ErrInvalidStorageDir = errors.New("invalid storage directory")
)

const (
	// DefaultModelName is the provider-qualified model used for generation.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultGenerateTimeout bounds a single model call. Artifact generation
	// can run for a long time on complex instructions, so this is measured
	// in minutes rather than seconds.
	DefaultGenerateTimeout = 3 * time.Minute

	// MaxGenerateTimeout is the upper bound accepted from configuration.
	MaxGenerateTimeout = 15 * time.Minute
)

// Config stores application configuration.
// SECURITY: APIKey is masked in MarshalJSON. When adding new sensitive
// fields, update MarshalJSON.
type Config struct {
	// Model configuration
	ModelName       string  `mapstructure:"model_name" json:"model_name"`
	APIKey          string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" json:"max_tokens"`
	EnableReasoning bool    `mapstructure:"enable_reasoning" json:"enable_reasoning"`

	// GenerateTimeout is the hard upper bound for one model call.
	GenerateTimeout time.Duration `mapstructure:"generate_timeout" json:"generate_timeout"`

	// Storage configuration
	StorageDir   string `mapstructure:"storage_dir" json:"storage_dir"`
	CredentialDB string `mapstructure:"credential_db" json:"credential_db"`

	// HTTP server configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".faceforge")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 10000)
	v.SetDefault("enable_reasoning", true)
	v.SetDefault("generate_timeout", DefaultGenerateTimeout)

	v.SetDefault("storage_dir", filepath.Join(configDir, "storage"))
	v.SetDefault("credential_db", filepath.Join(configDir, "storage", "credentials.db"))

	v.SetDefault("listen_addr", "127.0.0.1:10030")
	v.SetDefault("cors_origins", []string{"http://localhost:10031"})
}

// bindEnvVariables binds sensitive environment variables explicitly.
// GEMINI_API_KEY holds the system model credential used when a client has
// not registered one of its own.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("model_name", "FACEFORGE_MODEL")
	_ = v.BindEnv("storage_dir", "FACEFORGE_STORAGE_DIR")
	_ = v.BindEnv("listen_addr", "FACEFORGE_LISTEN_ADDR")
}

// Validate checks configuration values and fails fast on invalid ones.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > 1_000_000 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.GenerateTimeout <= 0 || c.GenerateTimeout > MaxGenerateTimeout {
		return fmt.Errorf("%w: %v (must be in (0, %v])", ErrInvalidTimeout, c.GenerateTimeout, MaxGenerateTimeout)
	}
	if c.StorageDir == "" {
		return ErrInvalidStorageDir
	}
	return nil
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.APIKey != "" {
		masked.APIKey = "***"
	}
	return json.Marshal(masked)
}
