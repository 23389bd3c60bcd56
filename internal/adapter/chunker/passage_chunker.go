package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// PassageChunker splits extracted guideline text into overlapping passages.
// Paragraphs are the unit of accumulation; an oversized paragraph is split
// at sentence boundaries.
type PassageChunker struct {
	maxTokens int
	overlap   int
	tokenizer *analyzer.Tokenizer
}

func NewPassageChunker(maxTokens, overlap int, tokenizer *analyzer.Tokenizer) *PassageChunker {
	return &PassageChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

func (c *PassageChunker) Chunk(doc domain.Document, pages []port.PageText) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	seq := 0

	for _, page := range pages {
		units := c.splitUnits(page.Text)
		if len(units) == 0 {
			continue
		}

		start := 0
		for start < len(units) {
			end := start
			currentTokens := 0
			var text strings.Builder

			for end < len(units) {
				unitTokens := c.tokenizer.CountTokens(units[end])
				if currentTokens > 0 && currentTokens+unitTokens > c.maxTokens {
					break
				}
				if text.Len() > 0 {
					text.WriteString("\n\n")
				}
				text.WriteString(units[end])
				currentTokens += unitTokens
				end++
			}

			// An oversized single unit still becomes its own chunk.
			if end == start {
				text.WriteString(units[end])
				end++
			}

			passage := text.String()
			chunk := domain.Chunk{
				ID:     generateChunkID(doc.ID, seq),
				DocID:  doc.ID,
				Seq:    seq,
				Page:   page.Page,
				Tokens: c.tokenizer.Tokenize(passage),
				Text:   passage,
			}
			chunks = append(chunks, chunk)
			seq++

			newStart := end - c.overlapUnits(units, start, end)
			if newStart <= start {
				newStart = start + 1
			}
			if newStart > end {
				newStart = end
			}
			start = newStart
		}
	}

	return chunks, nil
}

// splitUnits breaks page text into paragraphs, splitting any paragraph that
// exceeds the chunk budget at sentence boundaries.
func (c *PassageChunker) splitUnits(text string) []string {
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if c.tokenizer.CountTokens(para) <= c.maxTokens {
			units = append(units, para)
			continue
		}
		units = append(units, splitSentences(para)...)
	}
	return units
}

// splitSentences splits at sentence-ending punctuation, including the
// Devanagari danda used across the Indic guideline translations.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '?' || r == '!' || r == '।' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// overlapUnits counts how many trailing units of the finished chunk should
// start the next one.
func (c *PassageChunker) overlapUnits(units []string, start, end int) int {
	if c.overlap == 0 {
		return 0
	}

	count := 0
	tokens := 0
	for i := end - 1; i >= start && tokens < c.overlap; i-- {
		tokens += c.tokenizer.CountTokens(units[i])
		count++
	}
	return count
}

func generateChunkID(docID string, seq int) string {
	data := fmt.Sprintf("%s:%d", docID, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
