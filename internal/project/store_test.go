package project

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceforge/faceforge/internal/asset"
	"github.com/faceforge/faceforge/internal/log"
)

func newReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), log.NewNop())
	require.NoError(t, err)
	return store
}

func newTestMeta(clientID string) *Metadata {
	now := time.Now().UTC()
	return &Metadata{
		ProjectID: uuid.NewString(),
		SessionID: uuid.NewString(),
		ClientID:  clientID,
		Name:      "analog classic",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")

	files := map[string]string{
		"index.html": "<!DOCTYPE html>\n<html></html>",
	}
	require.NoError(t, store.Save(ctx, meta, files, "client-a"))

	rec, err := store.Load(ctx, meta.ProjectID, "client-a")
	require.NoError(t, err)
	assert.Equal(t, meta.ProjectID, rec.Metadata.ProjectID)
	assert.Equal(t, files["index.html"], rec.Files["index.html"])
}

func TestStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Load(context.Background(), uuid.NewString(), "client-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAuthorization(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")
	require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

	t.Run("other client cannot load", func(t *testing.T) {
		_, err := store.Load(ctx, meta.ProjectID, "client-b")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("other client cannot delete", func(t *testing.T) {
		err := store.Delete(ctx, meta.ProjectID, "client-b")
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = store.Load(ctx, meta.ProjectID, "client-a")
		assert.NoError(t, err)
	})

	t.Run("other client cannot overwrite", func(t *testing.T) {
		err := store.Save(ctx, meta, map[string]string{"index.html": "stolen"}, "client-b")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestStoreDefaultClientNormalization(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	// Stored with an empty client id, read back as "default".
	meta := newTestMeta("")
	require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, ""))

	_, err := store.Load(ctx, meta.ProjectID, DefaultClientID)
	assert.NoError(t, err)

	_, err = store.Load(ctx, meta.ProjectID, "someone-else")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStoreBinaryFilesSkippedOnSave(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")

	files := map[string]string{
		"index.html":      "<html></html>",
		"assets/hand.png": BinarySentinel,
	}
	require.NoError(t, store.Save(ctx, meta, files, "client-a"))

	_, err := os.Stat(filepath.Join(store.Root(), "projects", meta.ProjectID, "src", "assets", "hand.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreBinaryFilesFlaggedOnLoad(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")
	require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

	// Drop raw binary bytes into src/ out of band.
	binPath := filepath.Join(store.Root(), "projects", meta.ProjectID, "src", "assets", "hand.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(binPath), 0o755))
	require.NoError(t, os.WriteFile(binPath, []byte{0x89, 0x50, 0x4e, 0x47, 0xff, 0xfe}, 0o644))

	rec, err := store.Load(ctx, meta.ProjectID, "client-a")
	require.NoError(t, err)
	assert.Equal(t, BinarySentinel, rec.Files["assets/hand.png"])
	assert.Equal(t, "<html></html>", rec.Files["index.html"])
}

func TestStoreCopiesUploadedAssets(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")
	meta.Assets = asset.Manifest{PointerHour: &asset.Ref{
		Role:       asset.RolePointerHour,
		Filename:   "hour.png",
		StoredName: "pointer_hour_20260901120000.png",
	}}

	_, err := store.SaveUpload(ctx, meta.SessionID, meta.Assets.PointerHour.StoredName,
		newReader([]byte("png-bytes")))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

	copied := filepath.Join(store.Root(), "projects", meta.ProjectID, "src", "assets",
		meta.Assets.PointerHour.StoredName)
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestStoreMissingUploadedAssetIsSkipped(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	meta := newTestMeta("client-a")
	meta.Assets = asset.Manifest{PointerHour: &asset.Ref{
		Role:       asset.RolePointerHour,
		Filename:   "hour.png",
		StoredName: "pointer_hour_20260901120000.png",
	}}

	err := store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a")
	assert.NoError(t, err)
}

func TestStoreList(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	older := newTestMeta("client-a")
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newTestMeta("client-a")
	foreign := newTestMeta("client-b")

	for _, m := range []*Metadata{older, newer, foreign} {
		require.NoError(t, store.Save(ctx, m, map[string]string{"index.html": "<html></html>"}, m.ClientID))
	}

	summaries, err := store.List(ctx, "", "client-a")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, newer.ProjectID, summaries[0].ProjectID, "newest updated first")
	assert.Equal(t, older.ProjectID, summaries[1].ProjectID)

	t.Run("session filter", func(t *testing.T) {
		filtered, err := store.List(ctx, older.SessionID, "client-a")
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, older.ProjectID, filtered[0].ProjectID)
	})

	t.Run("empty store", func(t *testing.T) {
		empty := newTestStore(t)
		summaries, err := empty.List(ctx, "", "client-a")
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}

func TestStoreDeleteAll(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	mine := newTestMeta("client-a")
	alsoMine := newTestMeta("client-a")
	foreign := newTestMeta("client-b")
	for _, m := range []*Metadata{mine, alsoMine, foreign} {
		require.NoError(t, store.Save(ctx, m, map[string]string{"index.html": "<html></html>"}, m.ClientID))
	}

	deleted, err := store.DeleteAll(ctx, "", "client-a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// Foreign project untouched.
	_, err = store.Load(ctx, foreign.ProjectID, "client-b")
	assert.NoError(t, err)
}

func TestStoreLoadWithConversation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	t.Run("explicit history wins", func(t *testing.T) {
		meta := newTestMeta("client-a")
		meta.Conversation = []Turn{
			{Role: "user", Content: "make it blue", Timestamp: meta.UpdatedAt},
			{Role: "assistant", Content: "done", Timestamp: meta.UpdatedAt},
		}
		require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

		rec, err := store.LoadWithConversation(ctx, meta.ProjectID, "client-a")
		require.NoError(t, err)
		require.Len(t, rec.Conversation, 2)
		assert.Equal(t, "make it blue", rec.Conversation[0].Content)
	})

	t.Run("legacy record synthesizes two turns", func(t *testing.T) {
		meta := newTestMeta("client-a")
		meta.LastInstruction = "a red digital face"
		require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

		rec, err := store.LoadWithConversation(ctx, meta.ProjectID, "client-a")
		require.NoError(t, err)
		require.Len(t, rec.Conversation, 2)
		assert.Equal(t, "user", rec.Conversation[0].Role)
		assert.Equal(t, "a red digital face", rec.Conversation[0].Content)
		assert.Equal(t, "assistant", rec.Conversation[1].Role)
	})

	t.Run("no history at all", func(t *testing.T) {
		meta := newTestMeta("client-a")
		require.NoError(t, store.Save(ctx, meta, map[string]string{"index.html": "<html></html>"}, "client-a"))

		rec, err := store.LoadWithConversation(ctx, meta.ProjectID, "client-a")
		require.NoError(t, err)
		assert.Empty(t, rec.Conversation)
	})
}

func TestStoreRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	t.Run("project id", func(t *testing.T) {
		meta := newTestMeta("client-a")
		meta.ProjectID = "../escape"
		err := store.Save(ctx, meta, nil, "client-a")
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("file path", func(t *testing.T) {
		meta := newTestMeta("client-a")
		err := store.Save(ctx, meta, map[string]string{"../../evil.html": "x"}, "client-a")
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("upload name", func(t *testing.T) {
		_, err := store.SaveUpload(ctx, "session", "../evil.png", newReader(nil))
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestStoreUploadPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveUpload(ctx, "sess-1", "bg_round_20260901120000.png", newReader([]byte("data")))
	require.NoError(t, err)

	path, err := store.UploadPath("sess-1", "bg_round_20260901120000.png")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = store.UploadPath("sess-1", "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
