// Package project persists versioned, multi-tenant watchface projects.
//
// Each project is a directory under <root>/projects/<project_id> holding a
// metadata record and a src/ subtree with the generated files and copied
// assets. Upload sessions live in separate namespaces under
// <root>/uploads/<session_id>. The stored client id is the sole
// authorization boundary: every project-scoped operation verifies the
// caller's identity against it before touching content.
package project

import (
	"errors"
	"time"

	"github.com/faceforge/faceforge/internal/asset"
)

// DefaultClientID is the identity assumed when a caller supplies none.
const DefaultClientID = "default"

// BinarySentinel marks a non-text file in a loaded file map. Binary content
// is flagged, never decoded into the map.
const BinarySentinel = "[BINARY_FILE]"

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrNotFound indicates the referenced project does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrUnauthorized indicates the caller does not own the project.
	// Always fatal; never downgraded to a read-only view.
	ErrUnauthorized = errors.New("client does not own this project")

	// ErrInvalidID indicates a project or session id unusable as a storage
	// namespace (empty, or containing path separators).
	ErrInvalidID = errors.New("invalid identifier")
)

// Turn is one conversation exchange recorded on a project. Turns are
// append-only and ordered by creation time.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Assistant-only extras.
	Reasoning string `json:"reasoning,omitempty"`     // model thinking trace
	RawOutput string `json:"raw_output,omitempty"`    // unprocessed model output
	Snapshot  string `json:"code_snapshot,omitempty"` // leading slice of the artifact
}

// Metadata is the canonical typed project record. It is the only shape the
// store reads or writes; conversion from wire formats happens at the API
// boundary.
type Metadata struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	Name      string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assets          asset.Manifest `json:"assets"`
	EditCount       int            `json:"edit_count"`
	LastInstruction string         `json:"last_instruction"`
	Conversation    []Turn         `json:"conversation_history"`
}

// Summary is the lightweight listing shape returned by List.
type Summary struct {
	ProjectID       string    `json:"project_id"`
	SessionID       string    `json:"session_id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastInstruction string    `json:"last_instruction"`
	EditCount       int       `json:"edit_count"`
}

// Record bundles a loaded project: its metadata plus the file map keyed by
// path relative to src/.
type Record struct {
	Metadata     *Metadata
	Files        map[string]string
	Conversation []Turn // populated by LoadWithConversation
}

// NormalizeClient maps an absent caller identity to DefaultClientID.
func NormalizeClient(clientID string) string {
	if clientID == "" {
		return DefaultClientID
	}
	return clientID
}
