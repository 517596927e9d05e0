package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceforge/faceforge/internal/credential"
	"github.com/faceforge/faceforge/internal/log"
)

func newTestCredentials(t *testing.T) *credential.Store {
	t.Helper()
	store, err := credential.NewStore(filepath.Join(t.TempDir(), "creds.db"), log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fakeBuild records the keys it was asked to build clients for.
type fakeBuild struct {
	keys []string
}

func (f *fakeBuild) build(_ context.Context, cfg ClientConfig) (Client, error) {
	f.keys = append(f.keys, cfg.APIKey)
	return &stubClient{out: &Output{Text: fencedFace}}, nil
}

func TestProviderDefaultClient(t *testing.T) {
	t.Parallel()

	fb := &fakeBuild{}
	p := NewProvider(ClientConfig{APIKey: "server-key", ModelName: "googleai/gemini-2.5-flash"}, nil, log.NewNop())
	p.build = fb.build

	ctx := context.Background()
	first, err := p.Default(ctx)
	require.NoError(t, err)
	second, err := p.Default(ctx)
	require.NoError(t, err)

	assert.Same(t, first.(*stubClient), second.(*stubClient), "default is built once")
	assert.Equal(t, []string{"server-key"}, fb.keys)
}

func TestProviderNoKeyAnywhere(t *testing.T) {
	t.Parallel()

	p := NewProvider(ClientConfig{ModelName: "googleai/gemini-2.5-flash"}, nil, log.NewNop())
	p.build = (&fakeBuild{}).build

	_, err := p.ForClient(context.Background(), "client-a")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestProviderPerClientKeyWins(t *testing.T) {
	t.Parallel()

	creds := newTestCredentials(t)
	ctx := context.Background()
	require.NoError(t, creds.Set(ctx, "client-a", "client-key-123456789"))

	fb := &fakeBuild{}
	p := NewProvider(ClientConfig{APIKey: "server-key", ModelName: "googleai/gemini-2.5-flash"}, creds, log.NewNop())
	p.build = fb.build

	_, err := p.ForClient(ctx, "client-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"client-key-123456789"}, fb.keys)

	t.Run("cached per credential", func(t *testing.T) {
		_, err := p.ForClient(ctx, "client-a")
		require.NoError(t, err)
		assert.Len(t, fb.keys, 1, "same key reuses the cached client")
	})

	t.Run("replaced key builds fresh client", func(t *testing.T) {
		require.NoError(t, creds.Set(ctx, "client-a", "rotated-key-987654321"))
		_, err := p.ForClient(ctx, "client-a")
		require.NoError(t, err)
		assert.Equal(t, []string{"client-key-123456789", "rotated-key-987654321"}, fb.keys)
	})
}

func TestProviderFallsBackToDefault(t *testing.T) {
	t.Parallel()

	creds := newTestCredentials(t)
	fb := &fakeBuild{}
	p := NewProvider(ClientConfig{APIKey: "server-key", ModelName: "googleai/gemini-2.5-flash"}, creds, log.NewNop())
	p.build = fb.build

	_, err := p.ForClient(context.Background(), "client-without-key")
	require.NoError(t, err)
	assert.Equal(t, []string{"server-key"}, fb.keys)
}
