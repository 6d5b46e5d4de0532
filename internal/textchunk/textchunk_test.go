package textchunk

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("Hello there\nfriend", 120)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "Hello there friend." {
		t.Fatalf("unexpected chunk %q", chunks[0])
	}
}

func TestSplitBlankInput(t *testing.T) {
	if chunks := Split("   \n ", 120); chunks != nil {
		t.Fatalf("expected nil for blank input, got %q", chunks)
	}
}

func TestSplitDefaultThreshold(t *testing.T) {
	text := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 70) + "."
	if got, want := len(Split(text, 0)), len(Split(text, DefaultMaxChars)); got != want {
		t.Fatalf("expected default threshold to match %d chunks, got %d", want, got)
	}
}

func TestSplitFourSentences(t *testing.T) {
	text := strings.Repeat("a", 40) + ". " +
		strings.Repeat("b", 60) + ". " +
		strings.Repeat("c", 95) + ". " +
		strings.Repeat("d", 100) + "."

	chunks := Split(text, 120)
	if len(chunks) < 2 || len(chunks) > 3 {
		t.Fatalf("expected 2-3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if c != strings.TrimSpace(c) {
			t.Fatalf("chunk %d not trimmed: %q", i, c)
		}
		if !strings.HasSuffix(c, ".") {
			t.Fatalf("chunk %d does not end with a period: %q", i, c)
		}
	}
	// Fragments keep their leading space, so joined sentences are separated by ".  ".
	if !strings.HasPrefix(chunks[0], strings.Repeat("a", 40)+".  "+strings.Repeat("b", 60)) {
		t.Fatalf("expected first two sentences merged, got %q", chunks[0])
	}
	if got := sentencesOf(chunks[0]); len(got) < 2 || got[0] != strings.Repeat("a", 40) || got[1] != strings.Repeat("b", 60) {
		t.Fatalf("unexpected sentences in first chunk: %q", got)
	}
}

func TestSplitKeepsNaivePeriodSplitting(t *testing.T) {
	chunks := Split("Pi is 3.14 roughly", 4)
	// "3.14" is cut at the decimal point like any other sentence boundary.
	want := []string{"Pi is 3.", "14 roughly."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %q, got %q", want, chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitOversizeSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("z", 300)
	chunks := Split("Short one. "+long+". Tail.", 120)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[1] != long+"." {
		t.Fatalf("expected oversize sentence alone, got %q", chunks[1])
	}
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	// 50 two-byte characters per sentence: 100 bytes but 50 characters.
	s := strings.Repeat("é", 50)
	chunks := Split(s+". "+s+".", 120)
	if len(chunks) != 1 {
		t.Fatalf("expected sentences to share a chunk, got %d", len(chunks))
	}
}

func TestSplitPreservesSentences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		maxChars := 20 + rng.Intn(150)
		var original []string
		var b strings.Builder
		for n := 1 + rng.Intn(12); n > 0; n-- {
			s := randomSentence(rng)
			original = append(original, s)
			b.WriteString(s)
			b.WriteString(". ")
			if rng.Intn(4) == 0 {
				b.WriteString("\n")
			}
		}

		chunks := Split(b.String(), maxChars)
		var rejoined []string
		for _, c := range chunks {
			if c == "" {
				t.Fatalf("empty chunk produced")
			}
			parts := sentencesOf(c)
			if len(parts) > 1 && utf8.RuneCountInString(c) >= maxChars+2 {
				t.Fatalf("multi-sentence chunk exceeds bound %d: %q", maxChars, c)
			}
			rejoined = append(rejoined, parts...)
		}
		if len(rejoined) != len(original) {
			t.Fatalf("expected %d sentences, got %d", len(original), len(rejoined))
		}
		for i := range original {
			if rejoined[i] != original[i] {
				t.Fatalf("sentence %d: expected %q, got %q", i, original[i], rejoined[i])
			}
		}
	}
}

func randomSentence(rng *rand.Rand) string {
	words := []string{"voice", "clone", "studio", "sample", "audio", "text", "speak", "model"}
	n := 1 + rng.Intn(10)
	out := make([]string, n)
	for i := range out {
		out[i] = words[rng.Intn(len(words))]
	}
	return strings.Join(out, " ")
}

func sentencesOf(chunk string) []string {
	var out []string
	for _, p := range strings.Split(chunk, ".") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
