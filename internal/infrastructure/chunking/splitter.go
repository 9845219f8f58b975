package chunking

import "strings"

// Splitter cuts extracted text into fixed-size overlapping windows. Chunks
// shorter than MinChunkChars are dropped as index noise, except when the whole
// document is that short.
type Splitter struct {
	ChunkSize     int
	Overlap       int
	MinChunkChars int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize:     chunkSize,
		Overlap:       overlap,
		MinChunkChars: 50,
	}
}

func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if len(chunk) >= s.MinChunkChars {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	// A document shorter than the minimum still indexes as one chunk.
	if len(out) == 0 {
		return []string{trimmed}
	}
	return out
}
