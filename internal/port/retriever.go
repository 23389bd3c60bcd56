package port

import "healthsense/internal/domain"

// Retriever defines the interface for searching indexed guideline content.
type Retriever interface {
	// Search searches for chunks matching the query and returns top-k results.
	Search(query string, k int) ([]domain.ScoredChunk, error)
}

// DiversityReranker reorders retrieval candidates for diversity.
type DiversityReranker interface {
	Rerank(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk
}
