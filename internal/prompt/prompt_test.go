package prompt

import (
	"strings"
	"testing"

	"sumd/internal/profile"
)

func TestBuild_DeterministicAndEndsWithCue(t *testing.T) {
	p := profile.OptimizedProfile()
	a := Build("Rivers carry sediment to the sea.", p)
	b := Build("Rivers carry sediment to the sea.", p)
	if a != b {
		t.Fatalf("prompt not deterministic")
	}
	if !strings.HasSuffix(a, CueToken) {
		t.Fatalf("prompt must end with cue: %q", a[len(a)-20:])
	}
	if n := strings.Count(a, CueToken); n != 2 {
		t.Fatalf("want one worked example plus the terminal cue, got %d cues", n)
	}
	if !strings.Contains(a, "Text: Rivers carry sediment to the sea.\n") {
		t.Fatalf("source text missing: %q", a)
	}
}

func TestExampleSummaryHasContractLength(t *testing.T) {
	if n := len(strings.Fields(exampleSummary)); n < 10 || n > 15 {
		t.Fatalf("worked example has %d words", n)
	}
}

func TestTruncate_Hard(t *testing.T) {
	tr := profile.Truncation{Mode: profile.TruncateHard, MaxChars: 5}
	if got := Truncate("héllo world", tr); got != "héllo" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("hi", tr); got != "hi" {
		t.Fatalf("short text changed: %q", got)
	}
}

func TestTruncate_HeadTail(t *testing.T) {
	tr := profile.Truncation{Mode: profile.TruncateHeadTail, Threshold: 10, Keep: 3}
	if got := Truncate("abcdefghijklmnop", tr); got != "abc"+Ellipsis+"nop" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdefghij", tr); got != "abcdefghij" {
		t.Fatalf("text at threshold must be kept: %q", got)
	}
}

func TestBuild_BaselineCapsAt3000(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := Build(long, profile.BaselineProfile())
	if strings.Contains(got, strings.Repeat("x", 3001)) {
		t.Fatalf("baseline prompt not capped")
	}
	if !strings.Contains(got, strings.Repeat("x", 3000)) {
		t.Fatalf("baseline prompt over-truncated")
	}
}
