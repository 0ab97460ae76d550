// Package postprocess turns raw model output into a 10 to 15 word summary.
//
// Process runs a fixed pipeline: isolate the continuation after the last cue,
// collapse whitespace, collapse repeated word runs, cut at the first sentence
// end, drop echoed prompt words, trim edge punctuation, enforce the word
// bounds (falling back to an excerpt of the source), capitalize.
package postprocess

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"sumd/internal/prompt"
)

// Word bounds of the summary contract.
const (
	MinWords = 10
	MaxWords = 15
)

// minLeadChars is the shortest sentence accepted as a fallback lead.
const minLeadChars = 20

// Result is a finished summary.
type Result struct {
	Summary   string
	WordCount int
	// Fallback is set when the model output was discarded in favour of an
	// excerpt of the source text.
	Fallback bool
}

// Process cleans raw, the full decoded output for promptText, and enforces the
// word contract against original.
func Process(raw, promptText, original string) Result {
	words := cleanWords(raw, promptText)
	if len(words) > MaxWords {
		words = words[:MaxWords]
	}
	if len(words) >= MinWords {
		s := capitalize(strings.Join(words, " "))
		return Result{Summary: s, WordCount: len(strings.Fields(s))}
	}
	s := capitalize(Excerpt(original))
	return Result{Summary: s, WordCount: len(strings.Fields(s)), Fallback: true}
}

// Clean applies the cleanup steps without the word contract and capitalizes
// the result. It can return fewer than MinWords words, or none.
func Clean(raw, promptText string) string {
	return capitalize(strings.Join(cleanWords(raw, promptText), " "))
}

func cleanWords(raw, promptText string) []string {
	s := continuation(raw, promptText)
	s = strings.Join(strings.Fields(s), " ")
	words := collapseRepeats(strings.Fields(s))
	s = firstSentence(strings.Join(words, " "))
	words = dropArtifacts(strings.Fields(s))
	return trimEdgePunct(words)
}

// continuation returns the text after the last cue, or raw minus the prompt
// when the cue is absent.
func continuation(raw, promptText string) string {
	if i := strings.LastIndex(raw, prompt.CueToken); i >= 0 {
		return raw[i+len(prompt.CueToken):]
	}
	if strings.HasPrefix(raw, promptText) {
		return raw[len(promptText):]
	}
	// The engine may have re-encoded the prompt; drop the same number of runes.
	n := utf8.RuneCountInString(promptText)
	r := []rune(raw)
	if n >= len(r) {
		return ""
	}
	return string(r[n:])
}

// collapseRepeats removes immediately repeated word sequences of any length,
// comparing case-insensitively, until none remain.
func collapseRepeats(words []string) []string {
	for {
		changed := false
		for n := len(words) / 2; n >= 1 && !changed; n-- {
			for i := 0; i+2*n <= len(words); i++ {
				if equalFoldRun(words[i:i+n], words[i+n:i+2*n]) {
					words = append(words[:i+n], words[i+2*n:]...)
					changed = true
					break
				}
			}
		}
		if !changed {
			return words
		}
	}
}

func equalFoldRun(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// firstSentence cuts s before the first terminator that ends a word.
func firstSentence(s string) string {
	for i, r := range s {
		if !isTerminator(r) {
			continue
		}
		if _, ok := sentenceEnd(s, i+utf8.RuneLen(r)); ok {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

// sentenceEnd skips closing quotes and brackets after a terminator and
// reports whether the sentence really ends there.
func sentenceEnd(s string, j int) (int, bool) {
	for j < len(s) && strings.IndexByte(`"')]`, s[j]) >= 0 {
		j++
	}
	return j, j >= len(s) || s[j] == ' '
}

func dropArtifacts(words []string) []string {
	for len(words) > 0 && isArtifact(words[0]) {
		words = words[1:]
	}
	return words
}

func isArtifact(w string) bool {
	w = strings.ToLower(strings.TrimFunc(w, isStray))
	for _, a := range prompt.ArtifactWords {
		if w == a {
			return true
		}
	}
	return false
}

func isStray(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }

// trimEdgePunct strips stray punctuation from the first and last words,
// dropping words that consisted of nothing else.
func trimEdgePunct(words []string) []string {
	for len(words) > 0 {
		w := strings.TrimLeftFunc(words[0], isStray)
		if w != "" {
			words[0] = w
			break
		}
		words = words[1:]
	}
	for len(words) > 0 {
		last := len(words) - 1
		w := strings.TrimRightFunc(words[last], isStray)
		if w != "" {
			words[last] = w
			break
		}
		words = words[:last]
	}
	return words
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Excerpt builds a fallback summary from source text: the first sentence of
// at least 20 characters, extended sentence by sentence while it has fewer
// than MinWords words, capped at MaxWords words. When the sentences after the
// lead run out, earlier ones are prepended. Sources with fewer than MinWords
// words yield all of their words.
func Excerpt(source string) string {
	sentences := Sentences(source)
	if len(sentences) == 0 {
		return ""
	}
	start := 0
	for i, s := range sentences {
		if utf8.RuneCountInString(s) >= minLeadChars {
			start = i
			break
		}
	}
	var words []string
	for _, s := range sentences[start:] {
		words = append(words, strings.Fields(s)...)
		if len(words) >= MinWords {
			break
		}
	}
	// Not enough after the lead; reach back over the short sentences before it.
	for i := start - 1; i >= 0 && len(words) < MinWords; i-- {
		words = append(strings.Fields(sentences[i]), words...)
	}
	if len(words) > MaxWords {
		words = words[:MaxWords]
	}
	return strings.Join(trimEdgePunct(words), " ")
}

// Sentences splits whitespace-collapsed text at terminators followed by a
// space or the end of text. Terminators stay attached to their sentence.
func Sentences(text string) []string {
	s := strings.Join(strings.Fields(text), " ")
	var out []string
	begin := 0
	for i, r := range s {
		if !isTerminator(r) {
			continue
		}
		if next, ok := sentenceEnd(s, i+utf8.RuneLen(r)); ok {
			if seg := strings.TrimSpace(s[begin:next]); seg != "" {
				out = append(out, seg)
			}
			begin = next
		}
	}
	if seg := strings.TrimSpace(s[begin:]); seg != "" {
		out = append(out, seg)
	}
	return out
}
