package usecase

import (
	"sort"

	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// ExcerptPacker selects retrieved chunks into a prompt-sized excerpt set,
// favoring high score per token so short relevant passages are not crowded
// out by long mediocre ones.
type ExcerptPacker struct {
	store     port.IndexStore
	tokenizer port.Tokenizer
	budget    int
}

func NewExcerptPacker(store port.IndexStore, tokenizer port.Tokenizer, budgetTokens int) *ExcerptPacker {
	if budgetTokens <= 0 {
		budgetTokens = 2800
	}
	return &ExcerptPacker{
		store:     store,
		tokenizer: tokenizer,
		budget:    budgetTokens,
	}
}

// Pack fills the token budget with excerpts from the scored chunks.
// Retrieval order breaks utility ties so the result stays deterministic.
func (p *ExcerptPacker) Pack(query string, chunks []domain.ScoredChunk) domain.PackedExcerpts {
	packed := domain.PackedExcerpts{
		Query:        query,
		BudgetTokens: p.budget,
	}

	type candidate struct {
		chunk   domain.ScoredChunk
		tokens  int
		utility float64
		rank    int
	}

	candidates := make([]candidate, 0, len(chunks))
	for i, sc := range chunks {
		tokens := len(sc.Chunk.Tokens)
		if tokens == 0 {
			tokens = p.tokenizer.CountTokens(sc.Chunk.Text)
		}
		if tokens == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			chunk:   sc,
			tokens:  tokens,
			utility: sc.Score / float64(tokens),
			rank:    i,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].utility != candidates[j].utility {
			return candidates[i].utility > candidates[j].utility
		}
		return candidates[i].rank < candidates[j].rank
	})

	for _, c := range candidates {
		if packed.UsedTokens+c.tokens > p.budget {
			continue
		}

		title := c.chunk.Chunk.DocID
		if doc, err := p.store.GetDoc(c.chunk.Chunk.DocID); err == nil {
			title = doc.Title
		}

		packed.Excerpts = append(packed.Excerpts, domain.Excerpt{
			Document: title,
			Page:     c.chunk.Chunk.Page,
			Text:     c.chunk.Chunk.Text,
		})
		packed.UsedTokens += c.tokens
	}

	return packed
}
