package workflow

import "testing"

func TestChunkBuffer_FlushesOnDelimiter(t *testing.T) {
	var chunks []string
	b := NewChunkBuffer(1000, []string{". "}, func(chunk, full string) {
		chunks = append(chunks, chunk)
	})

	b.Write("Hello world. This is ")
	b.Write("a second sentence. ")
	b.End()

	want := []string{"Hello world. ", "This is a second sentence. "}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunks[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkBuffer_FlushesOnThreshold(t *testing.T) {
	var chunks []string
	b := NewChunkBuffer(5, nil, func(chunk, full string) { chunks = append(chunks, chunk) })

	b.Write("abcdefghij")

	if len(chunks) != 2 || chunks[0] != "abcde" || chunks[1] != "fghij" {
		t.Fatalf("chunks = %v, want [abcde fghij]", chunks)
	}
}

func TestChunkBuffer_EndFlushesRemainder(t *testing.T) {
	var chunks []string
	b := NewChunkBuffer(1000, []string{"\n"}, func(chunk, full string) { chunks = append(chunks, chunk) })

	b.Write("no newline here")
	if len(chunks) != 0 {
		t.Fatalf("expected no flush before End, got %v", chunks)
	}
	b.End()
	if len(chunks) != 1 || chunks[0] != "no newline here" {
		t.Fatalf("chunks = %v, want [no newline here]", chunks)
	}
}

func TestChunkBuffer_FullTextAccumulatesEverything(t *testing.T) {
	b := NewChunkBuffer(4, nil, nil)
	b.Write("abcdefgh")
	b.End()
	if b.FullText() != "abcdefgh" {
		t.Fatalf("FullText = %q, want abcdefgh", b.FullText())
	}
}

func TestChunkBuffer_EndIsNoOpWhenEmpty(t *testing.T) {
	var flushed bool
	b := NewChunkBuffer(10, nil, func(chunk, full string) { flushed = true })
	b.End()
	if flushed {
		t.Fatal("End should not flush when nothing is pending")
	}
}
