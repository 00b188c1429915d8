package memory

import "strings"

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 120
)

// Span is a half-open rune window [Start, End) over trimmed input text.
type Span struct {
	Start int
	End   int
}

// ChunkText splits text into overlapping, sentence-aligned segments of at most
// targetSize runes. Empty or whitespace-only text yields no chunks.
func ChunkText(text string, targetSize, overlap int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	spans := chunkSpans(runes, targetSize, overlap)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		part := strings.TrimSpace(string(runes[sp.Start:sp.End]))
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ChunkSpans returns the raw windows ChunkText cuts, before per-chunk trimming.
// Offsets are rune indexes into strings.TrimSpace(text).
func ChunkSpans(text string, targetSize, overlap int) []Span {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return chunkSpans([]rune(trimmed), targetSize, overlap)
}

func chunkSpans(runes []rune, targetSize, overlap int) []Span {
	targetSize, overlap = normalizeChunkParams(targetSize, overlap)
	n := len(runes)
	spans := []Span{}
	start, prevCut := 0, 0
	for start < n {
		end := start + targetSize
		if end > n {
			end = n
		}
		cut := end
		// The final window always runs to the end of the text. A terminator at
		// or before the previous cut would repeat the previous chunk's tail.
		for i := end - 1; end < n && i >= start && i >= prevCut; i-- {
			if isSentenceTerminal(runes[i]) {
				cut = i + 1
				break
			}
		}
		spans = append(spans, Span{Start: start, End: cut})
		prevCut = cut
		if cut >= n {
			break
		}
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return spans
}

func normalizeChunkParams(targetSize, overlap int) (int, int) {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= targetSize {
		overlap = targetSize - 1
	}
	return targetSize, overlap
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
