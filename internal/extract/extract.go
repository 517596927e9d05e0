// Package extract pulls a single clean HTML artifact out of unstructured
// model output.
//
// Models wrap their answer in several conventions: a fenced block tagged
// ```html, an untagged fenced block, a bare document, or nothing at all.
// Extraction tries these in priority order and, in the worst case, returns
// the trimmed raw text unchanged. The ordering encodes a policy preference:
// well-formed fenced output beats loosely-fenced output beats bare document
// beats raw passthrough.
package extract

import (
	"errors"
	"strings"
)

// ErrNoArtifact indicates the raw output contained no recognizable artifact
// boundary. Only returned by ExtractStrict; Extract never fails.
var ErrNoArtifact = errors.New("no artifact found in model output")

const (
	fence     = "```"
	htmlFence = "```html"
	doctype   = "<!DOCTYPE html>"
	openRoot  = "<html>"
	closeRoot = "</html>"
)

// languageTags are fence language identifiers that may precede the artifact
// body inside an untagged fence.
var languageTags = map[string]bool{"html": true, "xml": true}

// Extract returns the artifact contained in raw model output. It never
// fails: if no wrapping convention matches, the trimmed input is returned
// as-is.
func Extract(raw string) string {
	if s, ok := fromTaggedFence(raw); ok {
		return s
	}
	if s, ok := fromAnyFence(raw); ok {
		return s
	}
	if s, ok := fromDocumentMarkers(raw); ok {
		return s
	}
	return strings.TrimSpace(raw)
}

// ExtractStrict behaves like Extract but refuses the raw-passthrough
// fallback: when only the permissive rule would apply, it returns
// ErrNoArtifact instead of the trimmed input.
func ExtractStrict(raw string) (string, error) {
	if s, ok := fromTaggedFence(raw); ok {
		return s, nil
	}
	if s, ok := fromAnyFence(raw); ok {
		return s, nil
	}
	if s, ok := fromDocumentMarkers(raw); ok {
		return s, nil
	}
	return "", ErrNoArtifact
}

// fromTaggedFence extracts the interior of the first ```html fenced block.
// An unterminated fence abandons this branch.
func fromTaggedFence(raw string) (string, bool) {
	start := strings.Index(raw, htmlFence)
	if start < 0 {
		return "", false
	}
	body := raw[start+len(htmlFence):]
	end := strings.Index(body, fence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// fromAnyFence extracts the interior of the first fenced block of any kind,
// skipping an optional leading language tag line.
func fromAnyFence(raw string) (string, bool) {
	start := strings.Index(raw, fence)
	if start < 0 {
		return "", false
	}
	body := raw[start+len(fence):]

	// A language identifier on the opening fence line is not part of the
	// artifact; drop that line.
	if nl := strings.Index(body, "\n"); nl >= 0 {
		firstLine := strings.TrimSpace(body[:nl])
		if languageTags[firstLine] {
			body = body[nl+1:]
		}
	}

	end := strings.Index(body, fence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// fromDocumentMarkers extracts from a doctype or opening root tag through
// the last closing root tag, inclusive. Using the last occurrence tolerates
// prose after the document that itself mentions </html>.
func fromDocumentMarkers(raw string) (string, bool) {
	start := strings.Index(raw, doctype)
	if start < 0 {
		start = strings.Index(raw, openRoot)
	}
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(raw, closeRoot)
	if end < 0 || end < start {
		return "", false
	}
	return strings.TrimSpace(raw[start : end+len(closeRoot)]), true
}
