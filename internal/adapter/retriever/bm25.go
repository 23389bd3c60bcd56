package retriever

import (
	"math"
	"sort"
	"strings"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// BM25Retriever scores chunks lexically. It backs the hybrid retriever and
// keeps retrieval working when no embedding provider is configured.
type BM25Retriever struct {
	store       port.IndexStore
	tokenizer   *analyzer.Tokenizer
	k1          float64
	b           float64
	sourceBoost float64
}

func NewBM25Retriever(store port.IndexStore, tokenizer *analyzer.Tokenizer, k1, b, sourceBoost float64) *BM25Retriever {
	return &BM25Retriever{
		store:       store,
		tokenizer:   tokenizer,
		k1:          k1,
		b:           b,
		sourceBoost: sourceBoost,
	}
}

func (r *BM25Retriever) Search(query string, k int) ([]domain.ScoredChunk, error) {
	queryTokens := r.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	stats, err := r.store.GetStats()
	if err != nil {
		return nil, err
	}

	if stats.TotalChunks == 0 {
		return nil, nil
	}

	queryTokenSet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		queryTokenSet[t] = struct{}{}
	}

	chunkScores := make(map[string]float64)
	chunkLengths := make(map[string]int)
	chunkDocIDs := make(map[string]string)

	for _, term := range queryTokens {
		postings, err := r.store.GetPostings(term)
		if err != nil {
			continue
		}

		n := float64(len(postings))
		N := float64(stats.TotalChunks)
		idf := math.Log((N-n+0.5)/(n+0.5) + 1)

		for _, posting := range postings {
			if _, exists := chunkLengths[posting.ChunkID]; !exists {
				chunk, err := r.store.GetChunk(posting.ChunkID)
				if err != nil {
					continue
				}
				chunkLengths[posting.ChunkID] = len(chunk.Tokens)
				chunkDocIDs[posting.ChunkID] = chunk.DocID
			}

			dl := float64(chunkLengths[posting.ChunkID])
			avgDl := stats.AvgChunkLen
			tf := float64(posting.TF)

			score := idf * (tf * (r.k1 + 1)) / (tf + r.k1*(1-r.b+r.b*dl/avgDl))
			chunkScores[posting.ChunkID] += score
		}
	}

	titleBoosts := make(map[string]float64)

	results := make([]domain.ScoredChunk, 0, len(chunkScores))
	for chunkID, score := range chunkScores {
		chunk, err := r.store.GetChunk(chunkID)
		if err != nil {
			continue
		}

		finalScore := score
		if r.sourceBoost > 0 {
			docID := chunkDocIDs[chunkID]
			boost, exists := titleBoosts[docID]
			if !exists {
				doc, err := r.store.GetDoc(docID)
				if err == nil {
					boost = titleMatchBoost(doc.Title, queryTokenSet)
					titleBoosts[docID] = boost
				}
			}
			finalScore = score * (1 + boost*r.sourceBoost)
		}

		results = append(results, domain.ScoredChunk{
			Chunk: chunk,
			Score: finalScore,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// titleMatchBoost rewards chunks from documents whose title mentions query
// terms, e.g. the dengue guideline for a dengue question.
func titleMatchBoost(title string, queryTokenSet map[string]struct{}) float64 {
	if title == "" || len(queryTokenSet) == 0 {
		return 0
	}

	matches := 0
	for _, part := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		if _, exists := queryTokenSet[part]; exists {
			matches++
		}
	}

	return float64(matches) / float64(len(queryTokenSet))
}
