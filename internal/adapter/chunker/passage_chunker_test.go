package chunker

import (
	"strings"
	"testing"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

func testDoc() domain.Document {
	return domain.Document{ID: "doc1", Path: "who_dengue.pdf", Title: "who_dengue.pdf"}
}

func TestChunk_SinglePassage(t *testing.T) {
	c := NewPassageChunker(200, 0, analyzer.NewTokenizer())

	pages := []port.PageText{{Page: 1, Text: "Dengue is a viral infection transmitted by mosquitoes."}}
	chunks, err := c.Chunk(testDoc(), pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Page != 1 {
		t.Errorf("expected page 1, got %d", chunks[0].Page)
	}
	if chunks[0].Seq != 0 {
		t.Errorf("expected seq 0, got %d", chunks[0].Seq)
	}
	if len(chunks[0].Tokens) == 0 {
		t.Error("expected chunk tokens")
	}
}

func TestChunk_SplitsLongText(t *testing.T) {
	c := NewPassageChunker(30, 0, analyzer.NewTokenizer())

	var paras []string
	for i := 0; i < 8; i++ {
		paras = append(paras, "Wash hands with soap and clean running water before preparing any food for the family.")
	}
	pages := []port.PageText{{Page: 2, Text: strings.Join(paras, "\n\n")}}

	chunks, err := c.Chunk(testDoc(), pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Seq != i {
			t.Errorf("chunk %d has seq %d", i, ch.Seq)
		}
		if ch.Text == "" {
			t.Errorf("chunk %d has empty text", i)
		}
	}
}

func TestChunk_OverlapRepeatsTrailingUnit(t *testing.T) {
	c := NewPassageChunker(25, 10, analyzer.NewTokenizer())

	pages := []port.PageText{{Page: 1, Text: "Use bed nets at night.\n\nDrain stagnant water weekly.\n\nSeek care for fever.\n\nSupport fogging campaigns locally.\n\nCover water storage containers."}}

	chunks, err := c.Chunk(testDoc(), pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// With overlap, the second chunk must begin with a paragraph that also
	// closed the first chunk.
	firstOfSecond := strings.Split(chunks[1].Text, "\n\n")[0]
	if !strings.Contains(chunks[0].Text, firstOfSecond) {
		t.Errorf("expected overlap continuity, first chunk %q does not contain %q", chunks[0].Text, firstOfSecond)
	}
}

func TestChunk_EmptyPages(t *testing.T) {
	c := NewPassageChunker(100, 10, analyzer.NewTokenizer())

	chunks, err := c.Chunk(testDoc(), []port.PageText{{Page: 1, Text: "   \n\n  "}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace pages, got %d", len(chunks))
	}
}

func TestSplitSentences_Danda(t *testing.T) {
	sentences := splitSentences("पानी उबालकर पिएं। हाथ धोएं। Stay hydrated.")
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(sentences), sentences)
	}
}

func TestChunk_UniqueIDs(t *testing.T) {
	c := NewPassageChunker(20, 0, analyzer.NewTokenizer())

	text := strings.Repeat("Boil drinking water during the monsoon season to prevent cholera.\n\n", 6)
	chunks, err := c.Chunk(testDoc(), []port.PageText{{Page: 1, Text: text}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.ID] {
			t.Fatalf("duplicate chunk ID %s", ch.ID)
		}
		seen[ch.ID] = true
	}
}
