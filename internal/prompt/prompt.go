// Package prompt turns source text into the few-shot prompt fed to the model.
package prompt

import (
	"strings"

	"sumd/internal/profile"
)

// CueToken terminates the prompt; the model continues after it.
const CueToken = "Summary:"

// Ellipsis joins the head and tail of an excerpted text.
const Ellipsis = " [...] "

const (
	instruction    = "Summarize the text in one sentence of 10 to 15 words."
	exampleText    = "The ocean covers more than two thirds of the Earth. It absorbs heat from the sun and moves it around the globe through currents, which keeps coastal climates mild and drives weather far inland."
	exampleSummary = "The ocean covers most of the planet and plays a key role regulating climate."
)

// ArtifactWords are prompt vocabulary a model tends to echo at the start of
// its continuation. Compared case-insensitively with trailing punctuation
// removed.
var ArtifactWords = []string{"summary", "summarize", "text", "example", "sentence", "words", "résumé"}

// Build returns the prompt for text under p's truncation policy.
// The result depends only on its arguments.
func Build(text string, p profile.Profile) string {
	body := Truncate(strings.TrimSpace(text), p.Truncation)
	var b strings.Builder
	b.Grow(len(instruction) + len(exampleText) + len(exampleSummary) + len(body) + 64)
	b.WriteString(instruction)
	b.WriteString("\n\nExample:\nText: ")
	b.WriteString(exampleText)
	b.WriteString("\n")
	b.WriteString(CueToken)
	b.WriteString(" ")
	b.WriteString(exampleSummary)
	b.WriteString("\n\nText: ")
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(CueToken)
	return b.String()
}

// Truncate applies t to text. Lengths are counted in runes so multi-byte
// characters are never split.
func Truncate(text string, t profile.Truncation) string {
	r := []rune(text)
	switch t.Mode {
	case profile.TruncateHard:
		if t.MaxChars > 0 && len(r) > t.MaxChars {
			return string(r[:t.MaxChars])
		}
	case profile.TruncateHeadTail:
		if t.Keep > 0 && len(r) > t.Threshold && len(r) > 2*t.Keep {
			return string(r[:t.Keep]) + Ellipsis + string(r[len(r)-t.Keep:])
		}
	}
	return text
}
