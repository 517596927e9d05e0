// Package asset models the user-supplied binary resources (images) a
// watchface project references by semantic role.
//
// A Manifest maps each role to at most one stored file, except the
// multi-valued roles (digits 0-9, weekday 1-7, decorations) which hold
// ordered lists. Manifests are merged per role on edit: an incoming role
// overwrites the stored one, and roles absent from the incoming manifest are
// never dropped.
package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Role identifies the semantic slot an uploaded file fills.
type Role string

// Asset roles recognized by the prompt builder and the upload endpoint.
const (
	RoleBackgroundRound  Role = "background_round"
	RoleBackgroundSquare Role = "background_square"
	RolePointerHour      Role = "pointer_hour"
	RolePointerMinute    Role = "pointer_minute"
	RolePointerSecond    Role = "pointer_second"
	RoleDigit            Role = "digit"
	RoleWeekday          Role = "weekday"
	RoleDecoration       Role = "decoration"
	RolePreview          Role = "preview"
)

// Sentinel errors for asset validation.
var (
	// ErrUnsupportedFormat indicates the file extension is not an accepted image format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFilename indicates an empty original filename.
	ErrEmptyFilename = errors.New("empty filename")

	// ErrUnknownRole indicates a role string outside the recognized set.
	ErrUnknownRole = errors.New("unknown asset role")
)

// allowedExtensions are the accepted upload formats.
var allowedExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Ref is a stored reference to one uploaded asset file.
type Ref struct {
	Role       Role   `json:"role"`
	Filename   string `json:"filename"`        // original upload name
	StoredName string `json:"stored_filename"` // normalized collision-resistant name
	Size       int64  `json:"file_size"`
	MIMEType   string `json:"mime_type"`
}

// Manifest is the full asset set of a project.
type Manifest struct {
	BackgroundRound  *Ref  `json:"background_round,omitempty"`
	BackgroundSquare *Ref  `json:"background_square,omitempty"`
	PointerHour      *Ref  `json:"pointer_hour,omitempty"`
	PointerMinute    *Ref  `json:"pointer_minute,omitempty"`
	PointerSecond    *Ref  `json:"pointer_second,omitempty"`
	Digits           []Ref `json:"digits,omitempty"`
	Weekdays         []Ref `json:"week_images,omitempty"`
	Decorations      []Ref `json:"decorations,omitempty"`
	Preview          *Ref  `json:"preview_image,omitempty"`
}

// IsEmpty reports whether the manifest references no files at all.
func (m *Manifest) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.BackgroundRound == nil &&
		m.BackgroundSquare == nil &&
		m.PointerHour == nil &&
		m.PointerMinute == nil &&
		m.PointerSecond == nil &&
		len(m.Digits) == 0 &&
		len(m.Weekdays) == 0 &&
		len(m.Decorations) == 0 &&
		m.Preview == nil
}

// Merge folds incoming into m, role by role. Present incoming roles replace
// the stored ones; absent roles keep their current value. The multi-valued
// roles replace wholesale when non-empty, since partial digit sets are not
// meaningful.
func (m *Manifest) Merge(incoming *Manifest) {
	if incoming == nil {
		return
	}
	if incoming.BackgroundRound != nil {
		m.BackgroundRound = incoming.BackgroundRound
	}
	if incoming.BackgroundSquare != nil {
		m.BackgroundSquare = incoming.BackgroundSquare
	}
	if incoming.PointerHour != nil {
		m.PointerHour = incoming.PointerHour
	}
	if incoming.PointerMinute != nil {
		m.PointerMinute = incoming.PointerMinute
	}
	if incoming.PointerSecond != nil {
		m.PointerSecond = incoming.PointerSecond
	}
	if len(incoming.Digits) > 0 {
		m.Digits = incoming.Digits
	}
	if len(incoming.Weekdays) > 0 {
		m.Weekdays = incoming.Weekdays
	}
	if len(incoming.Decorations) > 0 {
		m.Decorations = incoming.Decorations
	}
	if incoming.Preview != nil {
		m.Preview = incoming.Preview
	}
}

// Filenames returns the stored names of every referenced file, in manifest
// order. Used by the project store to copy session uploads into the
// project's own asset area.
func (m *Manifest) Filenames() []string {
	if m == nil {
		return nil
	}
	var names []string
	for _, ref := range []*Ref{
		m.BackgroundRound, m.BackgroundSquare,
		m.PointerHour, m.PointerMinute, m.PointerSecond,
	} {
		if ref != nil {
			names = append(names, ref.StoredName)
		}
	}
	for _, ref := range m.Digits {
		names = append(names, ref.StoredName)
	}
	for _, ref := range m.Weekdays {
		names = append(names, ref.StoredName)
	}
	for _, ref := range m.Decorations {
		names = append(names, ref.StoredName)
	}
	if m.Preview != nil {
		names = append(names, m.Preview.StoredName)
	}
	return names
}

// ParseRole converts a wire role string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleBackgroundRound, RoleBackgroundSquare,
		RolePointerHour, RolePointerMinute, RolePointerSecond,
		RoleDigit, RoleWeekday, RoleDecoration, RolePreview:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// ValidateFilename checks the original upload name carries an accepted
// image extension.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrEmptyFilename
	}
	lower := strings.ToLower(name)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, name, strings.Join(allowedExtensions, ", "))
}

// StoredName generates the collision-resistant storage name for an upload:
// {role}_{timestamp}{ext}. The timestamp has second granularity, matching
// the upload-area layout contract.
func StoredName(role Role, original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s_%s%s", role, now.Format("20060102150405"), ext)
}
