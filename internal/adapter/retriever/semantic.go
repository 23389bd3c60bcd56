package retriever

import (
	"fmt"

	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// SemanticRetriever matches questions to guideline passages by embedding
// similarity, catching paraphrases and cross-language symptom descriptions
// that lexical search misses.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	chunkStore  port.IndexStore
}

func NewSemanticRetriever(
	vectorStore port.VectorStore,
	embedder port.Embedder,
	chunkStore port.IndexStore,
) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		chunkStore:  chunkStore,
	}
}

func (r *SemanticRetriever) Search(query string, k int) ([]domain.ScoredChunk, error) {
	if r.vectorStore == nil || r.embedder == nil {
		return nil, fmt.Errorf("semantic search not available: embeddings not configured")
	}

	embeddings, err := r.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.vectorStore.Search(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	scores := make(map[string]float64, len(results))
	for i, result := range results {
		ids[i] = result.ID
		scores[result.ID] = result.Score
	}

	// One batched read; vectors whose chunk record is gone (a remote vector
	// backend running ahead of the local index) are skipped.
	chunks, err := r.chunkStore.GetChunks(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunk,
			Score: scores[chunk.ID],
		})
	}

	return scored, nil
}
