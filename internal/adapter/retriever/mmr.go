package retriever

import (
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// MMRReranker applies Maximal Marginal Relevance to a candidate list so
// the excerpts handed to the model cover different parts of the
// guidelines instead of repeating the same passage.
type MMRReranker struct {
	tokenizer    port.Tokenizer
	lambda       float64
	dedupJaccard float64
}

// NewMMRReranker creates a reranker. lambda balances relevance against
// diversity (1.0 = pure relevance). Candidates whose Jaccard similarity
// to an already selected chunk exceeds dedupJaccard are dropped as
// near-duplicates.
func NewMMRReranker(tokenizer port.Tokenizer, lambda, dedupJaccard float64) *MMRReranker {
	if lambda < 0 || lambda > 1 {
		lambda = 0.7
	}
	if dedupJaccard <= 0 || dedupJaccard > 1 {
		dedupJaccard = 0.8
	}

	return &MMRReranker{
		tokenizer:    tokenizer,
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
	}
}

// Rerank selects up to k chunks from candidates, greedily maximizing
// lambda*relevance - (1-lambda)*redundancy. Relevance scores are
// normalized to [0,1] against the best candidate.
func (m *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if len(candidates) <= 1 {
		return candidates
	}

	maxScore := candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	tokenSets := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokenSets[i] = tokenSet(m.tokenizer.Tokenize(c.Chunk.Text))
	}

	selected := make([]domain.ScoredChunk, 0, k)
	selectedSets := make([]map[string]struct{}, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0

		for i, c := range candidates {
			if used[i] {
				continue
			}

			relevance := c.Score / maxScore

			maxSim := 0.0
			for _, sel := range selectedSets {
				sim := jaccard(tokenSets[i], sel)
				if sim > maxSim {
					maxSim = sim
				}
			}

			if maxSim > m.dedupJaccard {
				used[i] = true
				continue
			}

			mmr := m.lambda*relevance - (1-m.lambda)*maxSim
			if bestIdx == -1 || mmr > bestMMR {
				bestIdx = i
				bestMMR = mmr
			}
		}

		if bestIdx == -1 {
			break
		}

		used[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
		selectedSets = append(selectedSets, tokenSets[bestIdx])
	}

	return selected
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for t := range small {
		if _, ok := large[t]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
