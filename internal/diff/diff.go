// Package diff computes line-level changes between two artifact versions.
//
// The comparison runs diffmatchpatch in line mode: both inputs are tokenized
// into lines, aligned with the classic edit-distance algorithm, and the
// aligned chunks are walked to classify every line as unchanged, added, or
// removed while preserving relative order. The result is purely a function
// of the two inputs.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Line is one added or removed line together with its position: for added
// lines the index in the new sequence, for removed lines the index in the
// old sequence at the point of removal.
type Line struct {
	Number  int    `json:"line_number"`
	Content string `json:"content"`
}

// Record is the structured outcome of one comparison.
type Record struct {
	Added        []Line `json:"added_lines"`
	Removed      []Line `json:"removed_lines"`
	TotalChanges int    `json:"total_changes"`
}

// Compute compares old and new artifact text line by line.
// Deterministic and side-effect free; worst case quadratic in the number of
// lines, which is acceptable for artifacts of tens of thousands of
// characters.
func Compute(oldText, newText string) *Record {
	dmp := diffmatchpatch.New()
	// Line-mode tokenization treats "x" and "x\n" as distinct tokens, which
	// would report a common final line without a newline as removed+added.
	// Normalizing both inputs keeps the last line comparable; splitLines
	// drops the resulting trailing empty entry.
	oldChars, newChars, lines := dmp.DiffLinesToChars(terminate(oldText), terminate(newText))
	diffs := dmp.DiffMain(oldChars, newChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	rec := &Record{}
	oldIdx, newIdx := 0, 0

	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldIdx++
				newIdx++
			case diffmatchpatch.DiffInsert:
				rec.Added = append(rec.Added, Line{Number: newIdx, Content: line})
				newIdx++
			case diffmatchpatch.DiffDelete:
				rec.Removed = append(rec.Removed, Line{Number: oldIdx, Content: line})
				oldIdx++
			}
		}
	}

	rec.TotalChanges = len(rec.Added) + len(rec.Removed)
	return rec
}

// terminate ensures non-empty text ends with a newline so the final line
// tokenizes identically on both sides of the comparison.
func terminate(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// splitLines splits chunk text into lines without a trailing empty entry.
// Chunk boundaries from line-mode diffing always fall on line boundaries,
// and the normalized inputs guarantee a trailing newline per chunk.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
