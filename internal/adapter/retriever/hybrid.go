package retriever

import (
	"sort"

	"healthsense/internal/domain"
)

// HybridRetriever combines BM25 lexical search with semantic vector
// search using Reciprocal Rank Fusion. It also reports the best raw
// similarity seen, which the answering pipeline turns into a coverage
// verdict.
type HybridRetriever struct {
	bm25       *BM25Retriever
	semantic   *SemanticRetriever
	rrfK       int
	bm25Weight float64
}

// SearchOutcome carries fused results plus the similarity signal used for
// coverage checks. Semantic is false when only the lexical path ran, in
// which case BestSimilarity is a squashed BM25 score.
type SearchOutcome struct {
	Chunks         []domain.ScoredChunk
	BestSimilarity float64
	Semantic       bool
}

func NewHybridRetriever(bm25 *BM25Retriever, semantic *SemanticRetriever, rrfK int, bm25Weight float64) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	if bm25Weight < 0 || bm25Weight > 1 {
		bm25Weight = 0.5
	}

	return &HybridRetriever{
		bm25:       bm25,
		semantic:   semantic,
		rrfK:       rrfK,
		bm25Weight: bm25Weight,
	}
}

// Search implements port.Retriever.
func (r *HybridRetriever) Search(query string, k int) ([]domain.ScoredChunk, error) {
	outcome, err := r.SearchWithOutcome(query, k)
	if err != nil {
		return nil, err
	}
	return outcome.Chunks, nil
}

// SearchWithOutcome performs hybrid retrieval and reports the coverage
// similarity signal.
func (r *HybridRetriever) SearchWithOutcome(query string, k int) (*SearchOutcome, error) {
	if r.semantic == nil {
		return r.lexicalOnly(query, k)
	}

	candidateK := k * 3
	if candidateK < 20 {
		candidateK = 20
	}

	bm25Results, err := r.bm25.Search(query, candidateK)
	if err != nil {
		bm25Results = nil
	}

	vectorResults, err := r.semantic.Search(query, candidateK)
	if err != nil {
		// Vector path down; answer from the lexical index alone.
		return r.lexicalOnly(query, k)
	}

	best := 0.0
	if len(vectorResults) > 0 {
		best = vectorResults[0].Score
	}

	fused := r.rrfFuse(bm25Results, vectorResults)
	if len(fused) > k {
		fused = fused[:k]
	}

	return &SearchOutcome{
		Chunks:         fused,
		BestSimilarity: best,
		Semantic:       true,
	}, nil
}

func (r *HybridRetriever) lexicalOnly(query string, k int) (*SearchOutcome, error) {
	results, err := r.bm25.Search(query, k)
	if err != nil {
		return nil, err
	}

	best := 0.0
	if len(results) > 0 {
		best = squashLexical(results[0].Score)
	}

	return &SearchOutcome{
		Chunks:         results,
		BestSimilarity: best,
	}, nil
}

// rrfFuse combines results using Reciprocal Rank Fusion.
// RRF score = Σ weight/(k + rank) for each list where the chunk appears.
func (r *HybridRetriever) rrfFuse(bm25Results, vectorResults []domain.ScoredChunk) []domain.ScoredChunk {
	rrfScores := make(map[string]float64)
	chunkMap := make(map[string]domain.Chunk)

	for rank, result := range bm25Results {
		rrfScores[result.Chunk.ID] += r.bm25Weight / float64(r.rrfK+rank+1)
		chunkMap[result.Chunk.ID] = result.Chunk
	}

	vectorWeight := 1.0 - r.bm25Weight
	for rank, result := range vectorResults {
		rrfScores[result.Chunk.ID] += vectorWeight / float64(r.rrfK+rank+1)
		if _, exists := chunkMap[result.Chunk.ID]; !exists {
			chunkMap[result.Chunk.ID] = result.Chunk
		}
	}

	fused := make([]domain.ScoredChunk, 0, len(rrfScores))
	for id, score := range rrfScores {
		fused = append(fused, domain.ScoredChunk{
			Chunk: chunkMap[id],
			Score: score,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}

// squashLexical maps an unbounded BM25 score into [0,1) so the same
// coverage thresholds apply when only the lexical path is available.
func squashLexical(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 5)
}
