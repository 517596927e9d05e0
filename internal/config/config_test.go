package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ModelName:       DefaultModelName,
		APIKey:          "test-key-1234",
		Temperature:     0.7,
		MaxTokens:       10000,
		GenerateTimeout: DefaultGenerateTimeout,
		StorageDir:      "/tmp/faceforge",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config passes",
			mutate: func(*Config) {},
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.GenerateTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "timeout above maximum",
			mutate:  func(c *Config) { c.GenerateTimeout = time.Hour },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "empty storage dir",
			mutate:  func(c *Config) { c.StorageDir = "" },
			wantErr: ErrInvalidStorageDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestMarshalJSON_MasksAPIKey(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.False(t, strings.Contains(string(data), "test-key-1234"),
		"raw API key must never appear in marshaled config")
	assert.Contains(t, string(data), `"api_key":"***"`)
}

func TestMarshalJSON_EmptyKeyStaysEmpty(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.APIKey = ""
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "", decoded["api_key"])
}
