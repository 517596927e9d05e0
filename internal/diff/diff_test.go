package diff_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceforge/faceforge/internal/diff"
)

func TestCompute_Identical(t *testing.T) {
	t.Parallel()

	text := "<div>A</div>\n<div>B</div>\n<div>C</div>"
	rec := diff.Compute(text, text)

	assert.Empty(t, rec.Added)
	assert.Empty(t, rec.Removed)
	assert.Equal(t, 0, rec.TotalChanges)
	assert.Equal(t, diff.NoChangeSummary, diff.Summarize(rec))
}

func TestCompute_SingleRemoval(t *testing.T) {
	t.Parallel()

	oldText := "<div>A</div>\n<div>B</div>"
	newText := "<div>A</div>"
	rec := diff.Compute(oldText, newText)

	assert.Empty(t, rec.Added)
	require.Len(t, rec.Removed, 1)
	assert.Contains(t, rec.Removed[0].Content, "B")
	assert.Equal(t, 1, rec.TotalChanges)
	assert.Equal(t, "removed 1 line(s)", diff.Summarize(rec))
}

func TestCompute_SingleAddition(t *testing.T) {
	t.Parallel()

	oldText := "<div>A</div>"
	newText := "<div>A</div>\n<div>B</div>"
	rec := diff.Compute(oldText, newText)

	assert.Empty(t, rec.Removed)
	require.Len(t, rec.Added, 1)
	assert.Equal(t, "<div>B</div>", rec.Added[0].Content)
	assert.Equal(t, 1, rec.Added[0].Number, "added line sits at index 1 of the new sequence")
	assert.Equal(t, "added 1 line(s)", diff.Summarize(rec))
}

func TestCompute_ModifiedLine(t *testing.T) {
	t.Parallel()

	oldText := "body { background: red; }\n.dial { width: 200px; }"
	newText := "body { background: blue; }\n.dial { width: 200px; }"
	rec := diff.Compute(oldText, newText)

	// A changed line classifies as one removal plus one addition.
	require.Len(t, rec.Removed, 1)
	require.Len(t, rec.Added, 1)
	assert.Contains(t, rec.Removed[0].Content, "red")
	assert.Contains(t, rec.Added[0].Content, "blue")
	assert.Equal(t, 2, rec.TotalChanges)
	assert.Equal(t, "modified 1 line(s), removed 1 line(s)", diff.Summarize(rec))
}

func TestCompute_TrailingNewline(t *testing.T) {
	t.Parallel()

	t.Run("common final line without newline is not a change", func(t *testing.T) {
		t.Parallel()
		rec := diff.Compute("<div>A</div>\n<div>B</div>", "<div>A</div>\nX\n<div>B</div>")

		assert.Empty(t, rec.Removed, "the unchanged last line must not be reported")
		require.Len(t, rec.Added, 1)
		assert.Equal(t, "X", rec.Added[0].Content)
		assert.Equal(t, 1, rec.TotalChanges)
	})

	t.Run("newline-only difference is no change", func(t *testing.T) {
		t.Parallel()
		rec := diff.Compute("<div>A</div>\n<div>B</div>", "<div>A</div>\n<div>B</div>\n")

		assert.Equal(t, 0, rec.TotalChanges)
		assert.Equal(t, diff.NoChangeSummary, diff.Summarize(rec))
	})

	t.Run("last line changed", func(t *testing.T) {
		t.Parallel()
		rec := diff.Compute("a\nb", "a\nc")

		require.Len(t, rec.Removed, 1)
		require.Len(t, rec.Added, 1)
		assert.Equal(t, "b", rec.Removed[0].Content)
		assert.Equal(t, "c", rec.Added[0].Content)
		assert.Equal(t, 2, rec.TotalChanges)
	})
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	oldText := "a\nb\nc\nd"
	newText := "a\nx\nc\ny"

	first := diff.Compute(oldText, newText)
	second := diff.Compute(oldText, newText)
	assert.Equal(t, first, second)
}

// applyRecord reconstructs the new line sequence from the old one plus a
// Record: removed lines leave the old sequence (highest index first), then
// added lines enter at their recorded new-sequence positions in order.
func applyRecord(oldText string, rec *diff.Record) []string {
	lines := strings.Split(oldText, "\n")

	removed := slices.Clone(rec.Removed)
	slices.Reverse(removed)
	for _, r := range removed {
		lines = slices.Delete(lines, r.Number, r.Number+1)
	}

	for _, a := range rec.Added {
		lines = slices.Insert(lines, a.Number, a.Content)
	}
	return lines
}

func TestCompute_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		oldText string
		newText string
	}{
		{
			name:    "replace middle line",
			oldText: "one\ntwo\nthree",
			newText: "one\nTWO\nthree",
		},
		{
			name:    "remove head and tail",
			oldText: "head\nkeep\ntail",
			newText: "keep",
		},
		{
			name:    "grow document",
			oldText: "<html>\n</html>",
			newText: "<html>\n<body>\n<div>dial</div>\n</body>\n</html>",
		},
		{
			name:    "disjoint rewrite",
			oldText: "alpha\nbeta",
			newText: "gamma\ndelta\nepsilon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := diff.Compute(tt.oldText, tt.newText)
			got := applyRecord(tt.oldText, rec)
			assert.Equal(t, strings.Split(tt.newText, "\n"), got)
		})
	}
}

func TestSummarize_NilRecord(t *testing.T) {
	t.Parallel()
	assert.Equal(t, diff.NoChangeSummary, diff.Summarize(nil))
}
