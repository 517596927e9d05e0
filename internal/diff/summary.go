package diff

import "fmt"

// NoChangeSummary is reported when a comparison finds no line-level change.
const NoChangeSummary = "no structural change detected"

// Summarize renders a Record as one short human-readable sentence.
// Pure function, no side effects.
func Summarize(rec *Record) string {
	added, removed := 0, 0
	if rec != nil {
		added = len(rec.Added)
		removed = len(rec.Removed)
	}

	switch {
	case added > 0 && removed > 0:
		return fmt.Sprintf("modified %d line(s), removed %d line(s)", added, removed)
	case added > 0:
		return fmt.Sprintf("added %d line(s)", added)
	case removed > 0:
		return fmt.Sprintf("removed %d line(s)", removed)
	default:
		return NoChangeSummary
	}
}
