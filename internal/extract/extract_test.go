package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceforge/faceforge/internal/extract"
)

const sampleDoc = `<!DOCTYPE html>
<html>
<head><style>.face { border-radius: 50%; }</style></head>
<body><div class="face"></div></body>
</html>`

func TestExtract_TaggedFence(t *testing.T) {
	t.Parallel()

	raw := "Here is your watchface:\n\n```html\n" + sampleDoc + "\n```\n\nLet me know if you want changes."
	assert.Equal(t, sampleDoc, extract.Extract(raw))
}

func TestExtract_TaggedFence_OnlyFirstBlockUsed(t *testing.T) {
	t.Parallel()

	raw := "```html\n<div>first</div>\n```\nand an alternative:\n```html\n<div>second</div>\n```"
	assert.Equal(t, "<div>first</div>", extract.Extract(raw))
}

func TestExtract_GenericFence(t *testing.T) {
	t.Parallel()

	t.Run("with language tag line", func(t *testing.T) {
		t.Parallel()
		raw := "```xml\n<div>A</div>\n```"
		assert.Equal(t, "<div>A</div>", extract.Extract(raw))
	})

	t.Run("without language tag line", func(t *testing.T) {
		t.Parallel()
		raw := "```\n<div>A</div>\n```"
		assert.Equal(t, "<div>A</div>", extract.Extract(raw))
	})
}

func TestExtract_UnterminatedFence_FallsThrough(t *testing.T) {
	t.Parallel()

	// Opening fence never closes: the fence branches are abandoned and the
	// document-marker branch picks up the artifact.
	raw := "```html\n" + sampleDoc
	assert.Equal(t, sampleDoc, extract.Extract(raw))
}

func TestExtract_DocumentMarkers(t *testing.T) {
	t.Parallel()

	t.Run("doctype through last closing tag", func(t *testing.T) {
		t.Parallel()
		raw := "Sure, here you go.\n" + sampleDoc + "\nHope this helps!"
		assert.Equal(t, sampleDoc, extract.Extract(raw))
	})

	t.Run("bare html root tag", func(t *testing.T) {
		t.Parallel()
		doc := "<html>\n<body>x</body>\n</html>"
		raw := "prose before\n" + doc
		assert.Equal(t, doc, extract.Extract(raw))
	})
}

func TestExtract_RawPassthrough(t *testing.T) {
	t.Parallel()

	raw := "  I could not produce a document this time.  "
	assert.Equal(t, "I could not produce a document this time.", extract.Extract(raw))
}

func TestExtract_IdempotentOnCleanArtifact(t *testing.T) {
	t.Parallel()

	// A clean artifact contains no fence markers, so a second extraction
	// must be the identity.
	once := extract.Extract(sampleDoc)
	assert.Equal(t, sampleDoc, once)
	assert.Equal(t, once, extract.Extract(once))
}

func TestExtract_TaggedFenceIgnoresSurroundingProse(t *testing.T) {
	t.Parallel()

	raw := "Reasoning about the layout first... the dial needs a center pivot.\n" +
		"```html\n<main>dial</main>\n```\n" +
		"The pivot uses transform-origin."
	assert.Equal(t, "<main>dial</main>", extract.Extract(raw))
}

func TestExtractStrict(t *testing.T) {
	t.Parallel()

	t.Run("fenced artifact extracts", func(t *testing.T) {
		t.Parallel()
		got, err := extract.ExtractStrict("```html\n<div/>\n```")
		require.NoError(t, err)
		assert.Equal(t, "<div/>", got)
	})

	t.Run("no boundary is an error", func(t *testing.T) {
		t.Parallel()
		_, err := extract.ExtractStrict("plain refusal text with no markup")
		assert.ErrorIs(t, err, extract.ErrNoArtifact)
	})
}
