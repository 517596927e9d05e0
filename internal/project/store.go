package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/faceforge/faceforge/internal/log"
)

const metadataFile = "metadata.json"

// Store persists projects and upload sessions on the local filesystem.
// A zero Store is not usable; construct with NewStore.
type Store struct {
	root   string
	logger log.Logger
}

// NewStore creates the projects/ and uploads/ namespaces under root and
// returns a store rooted there.
func NewStore(root string, logger log.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("project store: root directory is empty")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	for _, dir := range []string{filepath.Join(root, "projects"), filepath.Join(root, "uploads")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("project store: create %s: %w", dir, err)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.root, "projects", projectID)
}

func (s *Store) uploadDir(sessionID string) string {
	return filepath.Join(s.root, "uploads", sessionID)
}

// validateID rejects identifiers that would escape their namespace when used
// as a path component.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// authorize checks caller identity against the stored owner. Both sides are
// normalized so an absent id on either end means DefaultClientID.
func authorize(meta *Metadata, clientID string) error {
	if NormalizeClient(clientID) != NormalizeClient(meta.ClientID) {
		return fmt.Errorf("%w: project %s", ErrUnauthorized, meta.ProjectID)
	}
	return nil
}

// Save writes a project's metadata and file map, then copies any manifest
// assets from the owning upload session into src/assets/. Files whose
// content equals BinarySentinel are skipped, never written as text. When a
// record already exists on disk the caller must be its owner.
func (s *Store) Save(ctx context.Context, meta *Metadata, files map[string]string, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("project store: metadata is nil")
	}
	if err := validateID(meta.ProjectID); err != nil {
		return err
	}

	// Overwriting someone else's project is an ownership violation even
	// though the create path never hits this branch.
	if existing, err := s.readMetadata(meta.ProjectID); err == nil {
		if err := authorize(existing, clientID); err != nil {
			return err
		}
	}

	dir := s.projectDir(meta.ProjectID)
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return fmt.Errorf("project store: create %s: %w", srcDir, err)
	}

	for name, content := range files {
		if content == BinarySentinel {
			continue
		}
		target := filepath.Join(srcDir, filepath.FromSlash(name))
		rel, err := filepath.Rel(srcDir, target)
		if err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("%w: file path %q", ErrInvalidID, name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("project store: create parent of %s: %w", name, err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("project store: write %s: %w", name, err)
		}
	}

	if err := s.copyAssets(meta, srcDir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("project store: encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("project store: write metadata: %w", err)
	}

	s.logger.Debug("project saved",
		"project_id", meta.ProjectID,
		"files", len(files),
		"assets", len(meta.Assets.Filenames()))
	return nil
}

// copyAssets moves every manifest asset present in the project's upload
// session into src/assets/. Missing upload files are logged and skipped so a
// re-save after cleanup does not fail the whole project.
func (s *Store) copyAssets(meta *Metadata, srcDir string) error {
	names := meta.Assets.Filenames()
	if len(names) == 0 {
		return nil
	}
	assetDir := filepath.Join(srcDir, "assets")
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return fmt.Errorf("project store: create asset dir: %w", err)
	}
	for _, name := range names {
		src := filepath.Join(s.uploadDir(meta.SessionID), name)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				s.logger.Warn("upload asset missing, skipping",
					"project_id", meta.ProjectID, "asset", name)
				continue
			}
			return fmt.Errorf("project store: read upload %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(assetDir, name), data, 0o644); err != nil {
			return fmt.Errorf("project store: copy asset %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) readMetadata(projectID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.projectDir(projectID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("project store: read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("project store: decode metadata for %s: %w", projectID, err)
	}
	return &meta, nil
}

// Load returns a project's metadata and files. The caller must own the
// project; the ownership check runs before any file content is read.
func (s *Store) Load(ctx context.Context, projectID, clientID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(projectID); err != nil {
		return nil, err
	}
	meta, err := s.readMetadata(projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(meta, clientID); err != nil {
		return nil, err
	}

	files, err := s.readFiles(projectID)
	if err != nil {
		return nil, err
	}
	return &Record{Metadata: meta, Files: files}, nil
}

// readFiles walks src/ collecting text files keyed by slash-separated
// relative path. Non-UTF-8 content maps to BinarySentinel.
func (s *Store) readFiles(projectID string) (map[string]string, error) {
	srcDir := filepath.Join(s.projectDir(projectID), "src")
	files := make(map[string]string)
	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == srcDir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if utf8.Valid(data) {
			files[key] = string(data)
		} else {
			files[key] = BinarySentinel
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("project store: read files for %s: %w", projectID, err)
	}
	return files, nil
}

// LoadWithConversation loads a project and resolves its conversation
// history. Records written before per-turn history existed carry only
// last_instruction; for those a two-turn exchange is synthesized so edit
// prompts always see some context.
func (s *Store) LoadWithConversation(ctx context.Context, projectID, clientID string) (*Record, error) {
	rec, err := s.Load(ctx, projectID, clientID)
	if err != nil {
		return nil, err
	}
	meta := rec.Metadata
	if len(meta.Conversation) > 0 {
		rec.Conversation = meta.Conversation
		return rec, nil
	}
	if meta.LastInstruction != "" {
		rec.Conversation = []Turn{
			{Role: "user", Content: meta.LastInstruction, Timestamp: meta.UpdatedAt},
			{Role: "assistant", Content: "watchface generated", Timestamp: meta.UpdatedAt},
		}
	}
	return rec, nil
}

// List returns summaries of the caller's projects, optionally filtered by
// session, newest-updated first. Unreadable entries are skipped, not fatal.
func (s *Store) List(ctx context.Context, sessionID, clientID string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, "projects"))
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("project store: list: %w", err)
	}

	caller := NormalizeClient(clientID)
	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", entry.Name(), "error", err)
			continue
		}
		if NormalizeClient(meta.ClientID) != caller {
			continue
		}
		if sessionID != "" && meta.SessionID != sessionID {
			continue
		}
		summaries = append(summaries, Summary{
			ProjectID:       meta.ProjectID,
			SessionID:       meta.SessionID,
			Name:            meta.Name,
			CreatedAt:       meta.CreatedAt,
			UpdatedAt:       meta.UpdatedAt,
			LastInstruction: meta.LastInstruction,
			EditCount:       meta.EditCount,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes a project after an ownership check.
func (s *Store) Delete(ctx context.Context, projectID, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(projectID); err != nil {
		return err
	}
	meta, err := s.readMetadata(projectID)
	if err != nil {
		return err
	}
	if err := authorize(meta, clientID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.projectDir(projectID)); err != nil {
		return fmt.Errorf("project store: delete %s: %w", projectID, err)
	}
	s.logger.Info("project deleted", "project_id", projectID)
	return nil
}

// DeleteAll removes every project the caller owns, optionally restricted to
// one session, and returns how many were removed. Projects owned by other
// clients are untouched.
func (s *Store) DeleteAll(ctx context.Context, sessionID, clientID string) (int, error) {
	summaries, err := s.List(ctx, sessionID, clientID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, sum := range summaries {
		if err := os.RemoveAll(s.projectDir(sum.ProjectID)); err != nil {
			return deleted, fmt.Errorf("project store: delete %s: %w", sum.ProjectID, err)
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info("projects deleted", "count", deleted, "session_id", sessionID)
	}
	return deleted, nil
}

// SaveUpload streams an uploaded asset into the session's upload namespace
// and returns the number of bytes written.
func (s *Store) SaveUpload(ctx context.Context, sessionID, storedName string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateID(sessionID); err != nil {
		return 0, err
	}
	if err := validateID(storedName); err != nil {
		return 0, err
	}
	dir := s.uploadDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("project store: create upload dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, storedName))
	if err != nil {
		return 0, fmt.Errorf("project store: create upload %s: %w", storedName, err)
	}
	defer f.Close()
	n, err := io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("project store: write upload %s: %w", storedName, err)
	}
	return n, nil
}

// UploadPath returns the absolute path of a stored upload, or ErrNotFound
// when it does not exist.
func (s *Store) UploadPath(sessionID, storedName string) (string, error) {
	if err := validateID(sessionID); err != nil {
		return "", err
	}
	if err := validateID(storedName); err != nil {
		return "", err
	}
	path := filepath.Join(s.uploadDir(sessionID), storedName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: upload %s", ErrNotFound, storedName)
		}
		return "", fmt.Errorf("project store: stat upload: %w", err)
	}
	return path, nil
}

// Touch stamps UpdatedAt on a metadata record in memory. Callers persist it
// with Save.
func Touch(meta *Metadata) { meta.UpdatedAt = time.Now().UTC() }
