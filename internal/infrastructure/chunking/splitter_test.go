package chunking

import (
	"strings"
	"testing"
)

func TestSplitRoundTripsToInput(t *testing.T) {
	text := strings.Repeat("golang backend engineer with postgres and qdrant ", 20)
	s := NewSplitter(350)

	chunks := s.Split(text)
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunk concatenation does not round-trip to input")
	}
	for i, c := range chunks[:len(chunks)-1] {
		if got := len([]rune(c)); got != 350 {
			t.Fatalf("chunk %d has width %d, want 350", i, got)
		}
	}
	if last := len([]rune(chunks[len(chunks)-1])); last == 0 || last > 350 {
		t.Fatalf("last chunk has width %d", last)
	}
}

func TestSplitEmptyTextYieldsNothing(t *testing.T) {
	if chunks := NewSplitter(100).Split(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := NewSplitter(100).Split("short")
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("日", 7)
	chunks := NewSplitter(3).Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("multibyte round-trip failed")
	}
}

func TestNewSplitterDefaultsWidth(t *testing.T) {
	if s := NewSplitter(0); s.ChunkSize != 350 {
		t.Fatalf("expected default width 350, got %d", s.ChunkSize)
	}
}
