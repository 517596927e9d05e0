// Package prompt assembles the text sent to the model.
//
// Two builders cover the two flows: BuildGeneration for a fresh artifact
// and BuildEdit for modifying an existing one. Both are pure functions of
// their inputs and never fail; absent inputs simply produce a shorter
// prompt. The wording of the asset-usage directives is deliberately
// imperative: the model must reference uploaded files by their exact stored
// name instead of approximating them with generated colors or gradients.
package prompt

import (
	"fmt"
	"strings"

	"github.com/faceforge/faceforge/internal/asset"
)

const (
	// historyTurnLimit caps how many trailing conversation turns an edit
	// prompt carries. Older turns are dropped, bounding prompt size at the
	// cost of long-range context.
	historyTurnLimit = 3

	// turnContentBudget caps the characters quoted per conversation turn.
	turnContentBudget = 200
)

// Turn is one conversation exchange quoted as disambiguating context in an
// edit prompt.
type Turn struct {
	Role    string
	Content string
}

// SystemPrompt returns the system-role instructions for the create flow.
func SystemPrompt() string {
	return systemPrompt
}

// EditSystemPrompt returns the system-role instructions for the edit flow:
// the base prompt plus the minimal-change and asset-inference rules.
func EditSystemPrompt() string {
	return systemPrompt + editAddendum
}

// BuildGeneration produces the user-role message for a fresh generation.
// With assets to hand, every present role is enumerated with a binding usage
// directive; without them the model is told to design freely. The layout
// checklist is always appended for pointer-style dials.
func BuildGeneration(instruction string, manifest *asset.Manifest) string {
	var b strings.Builder

	b.WriteString("User request:\n")
	b.WriteString(instruction)
	b.WriteString("\n")

	if manifest.IsEmpty() {
		b.WriteString(`
Available assets:
(none - implement everything in code)

Generate one complete HTML watchface file that runs directly in a browser.
- Choose the dial style (analog pointers, digital, or mixed) from the request
- Decide whether to show date, weekday or other elements from the request
- Be creative within the user's description
`)
		return b.String()
	}

	b.WriteString("\nUploaded asset inventory:\n")
	b.WriteString(inventory(manifest))
	b.WriteString("\nAsset usage requirements (mandatory):\n")
	b.WriteString(usageDirectives(manifest))
	b.WriteString(layoutChecklist)
	b.WriteString("\nGenerate one complete HTML watchface file that runs directly in a browser.\n")
	return b.String()
}

// BuildEdit produces the user-role message for an edit. The current
// artifact is embedded verbatim, followed by the instruction, per-role
// directives when a manifest is present, and at most the trailing
// historyTurnLimit conversation turns.
func BuildEdit(artifact, instruction string, manifest *asset.Manifest, history []Turn) string {
	var b strings.Builder

	b.WriteString("Current watchface code:\n```html\n")
	b.WriteString(artifact)
	b.WriteString("\n```\n\nRequested change:\n")
	b.WriteString(instruction)
	b.WriteString("\n")

	if manifest.IsEmpty() {
		b.WriteString("\nAvailable assets:\n(none beyond what the code already uses)\n")
	} else {
		b.WriteString("\nUploaded asset inventory:\n")
		b.WriteString(inventory(manifest))
		b.WriteString("\nAsset usage reference:\n")
		b.WriteString(usageDirectives(manifest))
		b.WriteString(`
When the user names an asset ("the second hand", "my background"), use the
matching file from the inventory above. Never ask for a filename.
`)
	}

	b.WriteString(`
Minimal-change rule: modify only the lines relevant to the requested change
and keep every other line exactly as it is. Do not redesign, restyle or
"improve" unrelated parts.

Return the complete modified HTML file.
`)

	if ctx := historyContext(history); ctx != "" {
		b.WriteString(ctx)
	}
	return b.String()
}

// inventory lists every present role with its stored reference.
func inventory(m *asset.Manifest) string {
	var b strings.Builder

	single := []struct {
		label string
		ref   *asset.Ref
	}{
		{"round background", m.BackgroundRound},
		{"square background", m.BackgroundSquare},
		{"hour hand image", m.PointerHour},
		{"minute hand image", m.PointerMinute},
		{"second hand image", m.PointerSecond},
	}
	for _, s := range single {
		if s.ref != nil {
			fmt.Fprintf(&b, "- %s: %s\n", s.label, s.ref.StoredName)
		}
	}
	if len(m.Digits) > 0 {
		fmt.Fprintf(&b, "- digit images (0-9): %s\n", joinStored(m.Digits))
	}
	if len(m.Weekdays) > 0 {
		fmt.Fprintf(&b, "- weekday images (1-7): %s\n", joinStored(m.Weekdays))
	}
	if len(m.Decorations) > 0 {
		fmt.Fprintf(&b, "- decorations: %s\n", joinStored(m.Decorations))
	}
	return b.String()
}

// usageDirectives emits one binding directive per present role.
func usageDirectives(m *asset.Manifest) string {
	var b strings.Builder

	if m.BackgroundRound != nil {
		fmt.Fprintf(&b, "- the dial background MUST use background-image: url('./assets/%s'); never a gradient or solid color in its place\n",
			m.BackgroundRound.StoredName)
	}
	if m.BackgroundSquare != nil {
		fmt.Fprintf(&b, "- the alternate background MAY use background-image: url('./assets/%s')\n",
			m.BackgroundSquare.StoredName)
	}
	hands := []struct {
		label string
		class string
		ref   *asset.Ref
	}{
		{"hour hand", "hour-hand", m.PointerHour},
		{"minute hand", "minute-hand", m.PointerMinute},
		{"second hand", "second-hand", m.PointerSecond},
	}
	for _, h := range hands {
		if h.ref != nil {
			fmt.Fprintf(&b, "- the %s MUST be rendered as <img src='./assets/%s' class='%s' />\n",
				h.label, h.ref.StoredName, h.class)
		}
	}
	if len(m.Digits) > 0 {
		b.WriteString("- digits MUST be rendered with the uploaded digit images, <img src='./assets/...'/> per digit\n")
	}
	if len(m.Weekdays) > 0 {
		b.WriteString("- the weekday MUST be rendered with the uploaded weekday images (1 = Monday ... 7 = Sunday)\n")
	}
	return b.String()
}

// historyContext quotes the trailing conversation turns, truncated per turn.
func historyContext(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyTurnLimit {
		history = history[len(history)-historyTurnLimit:]
	}

	var b strings.Builder
	b.WriteString("\nRecent conversation:\n")
	for _, t := range history {
		content := t.Content
		if runes := []rune(content); len(runes) > turnContentBudget {
			content = string(runes[:turnContentBudget])
		}
		fmt.Fprintf(&b, "%s: %s\n", t.Role, content)
	}
	return b.String()
}

func joinStored(refs []asset.Ref) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.StoredName
	}
	return strings.Join(names, ", ")
}

// layoutChecklist is always appended on generation so pointer dials come
// out geometrically correct.
const layoutChecklist = `
Layout checklist (verify before answering):
1. If a background image was provided, the code contains background-image: url('./assets/...')
2. No linear-gradient or solid color stands in for an uploaded background
3. On analog dials the numerals sit at canonical orientations: 12 up, 3 right, 6 down, 9 left
4. Numeral positions are computed with trigonometry, not placed by eye
5. Every hand rotates around the exact center of the dial
`
