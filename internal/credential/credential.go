// Package credential stores per-client model API keys in SQLite.
//
// Keys are written once per client and replaced wholesale on the next Set.
// Read paths other than Get never expose raw key material: status and stats
// responses carry only a masked preview and a SHA-256 digest.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Sentinel errors, checked with errors.Is().
var (
	// ErrNotFound indicates the client has no stored key.
	ErrNotFound = errors.New("no api key stored for client")

	// ErrEmptyKey indicates an attempt to store a blank key.
	ErrEmptyKey = errors.New("api key is empty")

	// ErrEmptyClient indicates a blank client identifier.
	ErrEmptyClient = errors.New("client id is empty")
)

// Status reports whether a client has a key without revealing it.
type Status struct {
	ClientID string     `json:"client_id"`
	HasKey   bool       `json:"has_key"`
	Preview  string     `json:"key_preview,omitempty"`
	SetAt    *time.Time `json:"set_at,omitempty"`
	LastUsed *time.Time `json:"last_used,omitempty"`
}

// Stats summarizes the whole credential table.
type Stats struct {
	TotalClients int        `json:"total_clients"`
	LastSet      *time.Time `json:"last_set,omitempty"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// Hash returns the hex SHA-256 digest of a key, the only derived form
// persisted alongside the key for audit comparison.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Mask produces the displayable preview of a key: first four and last four
// characters with an ellipsis between. Keys of eight characters or fewer are
// fully starred so the preview never reconstructs a short key.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
