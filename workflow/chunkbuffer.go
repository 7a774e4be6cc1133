package workflow

import "strings"

// ChunkBuffer accumulates a growing text stream and flushes it when either
// a character threshold is reached or one of a configured set of delimiter
// substrings appears, whichever comes first. It exists so a UI consuming
// token-by-token LLM output sees coherent sentences instead of raw token
// fragments.
//
// ChunkBuffer is not safe for concurrent use; a single goroutine should own
// a buffer's lifetime (typically the goroutine reading an LLM stream).
type ChunkBuffer struct {
	threshold  int
	delimiters []string
	onFlush    func(chunk, fullText string)

	pending string // text accumulated since the last flush
	full    strings.Builder
}

// NewChunkBuffer creates a buffer that flushes when pending text reaches
// threshold characters or contains any of delimiters. onFlush is invoked
// with the newly flushed slice and the full accumulation so far.
func NewChunkBuffer(threshold int, delimiters []string, onFlush func(chunk, fullText string)) *ChunkBuffer {
	return &ChunkBuffer{
		threshold:  threshold,
		delimiters: delimiters,
		onFlush:    onFlush,
	}
}

// Write appends text to the pending accumulation, flushing as many times
// as the threshold/delimiter conditions are satisfied by the new content.
func (b *ChunkBuffer) Write(text string) {
	b.pending += text
	for {
		cut := b.findFlushPoint()
		if cut < 0 {
			return
		}
		chunk := b.pending[:cut]
		b.pending = b.pending[cut:]
		b.full.WriteString(chunk)
		if b.onFlush != nil {
			b.onFlush(chunk, b.full.String())
		}
	}
}

// findFlushPoint returns the length of pending that should be flushed, or
// -1 if neither the threshold nor a delimiter condition is met yet.
// Delimiters flush through (and including) the delimiter itself so the
// boundary text stays with the sentence it terminates.
func (b *ChunkBuffer) findFlushPoint() int {
	earliest := -1
	for _, d := range b.delimiters {
		if d == "" {
			continue
		}
		if idx := strings.Index(b.pending, d); idx >= 0 {
			end := idx + len(d)
			if earliest < 0 || end < earliest {
				earliest = end
			}
		}
	}
	if earliest >= 0 {
		return earliest
	}
	if b.threshold > 0 && len(b.pending) >= b.threshold {
		return b.threshold
	}
	return -1
}

// End flushes any remaining pending text, even if it satisfies neither the
// threshold nor a delimiter. Call End once the underlying stream is
// exhausted. End is a no-op if there is nothing pending.
func (b *ChunkBuffer) End() {
	if b.pending == "" {
		return
	}
	chunk := b.pending
	b.pending = ""
	b.full.WriteString(chunk)
	if b.onFlush != nil {
		b.onFlush(chunk, b.full.String())
	}
}

// FullText returns everything flushed so far, including by End.
func (b *ChunkBuffer) FullText() string {
	return b.full.String()
}
