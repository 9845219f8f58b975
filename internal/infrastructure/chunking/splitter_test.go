package chunking

import (
	"strings"
	"testing"
)

func TestSplitProducesOverlappingWindows(t *testing.T) {
	s := NewSplitter(100, 20)
	text := strings.Repeat("abcdefghij", 30)

	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d exceeds size: %d", i, len([]rune(c)))
		}
	}

	// Consecutive chunks share the 20-rune overlap.
	first := []rune(chunks[0])
	second := chunks[1]
	if !strings.HasPrefix(second, string(first[80:])) {
		t.Fatalf("no overlap between chunks:\n%q\n%q", chunks[0], chunks[1])
	}
}

func TestSplitDropsTrailingFragment(t *testing.T) {
	s := NewSplitter(100, 0)
	text := strings.Repeat("x", 100) + " tail"

	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected fragment below minimum dropped, got %d chunks", len(chunks))
	}
}

func TestSplitKeepsShortDocumentWhole(t *testing.T) {
	s := NewSplitter(900, 200)

	chunks := s.Split("  tiny note  ")
	if len(chunks) != 1 || chunks[0] != "tiny note" {
		t.Fatalf("short document must survive as one chunk, got %v", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(900, 200)
	if got := s.Split("   "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestNewSplitterNormalizesBadOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("overlap = %d, want chunkSize/4", s.Overlap)
	}
}
