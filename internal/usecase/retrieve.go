package usecase

import (
	"healthsense/internal/adapter/retriever"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// RetrieveUseCase runs hybrid retrieval, diversifies the candidates, and
// classifies how well the best match covers the question.
type RetrieveUseCase struct {
	hybrid           *retriever.HybridRetriever
	reranker         port.DiversityReranker
	topK             int
	clearThreshold   float64
	partialThreshold float64
}

func NewRetrieveUseCase(
	hybrid *retriever.HybridRetriever,
	reranker port.DiversityReranker,
	topK int,
	clearThreshold, partialThreshold float64,
) *RetrieveUseCase {
	if topK <= 0 {
		topK = 6
	}
	return &RetrieveUseCase{
		hybrid:           hybrid,
		reranker:         reranker,
		topK:             topK,
		clearThreshold:   clearThreshold,
		partialThreshold: partialThreshold,
	}
}

// Retrieval is the outcome of one retrieval pass.
type Retrieval struct {
	Chunks         []domain.ScoredChunk
	Coverage       domain.Coverage
	BestSimilarity float64
}

// Retrieve fetches a widened candidate pool, reranks for diversity, and
// derives the coverage verdict from the best raw similarity.
func (u *RetrieveUseCase) Retrieve(q domain.Query) (*Retrieval, error) {
	outcome, err := u.hybrid.SearchWithOutcome(q.Text, u.topK*2)
	if err != nil {
		return nil, err
	}

	chunks := outcome.Chunks
	if u.reranker != nil {
		chunks = u.reranker.Rerank(chunks, u.topK)
	} else if len(chunks) > u.topK {
		chunks = chunks[:u.topK]
	}

	return &Retrieval{
		Chunks:         chunks,
		Coverage:       u.classifyCoverage(outcome.BestSimilarity, len(chunks)),
		BestSimilarity: outcome.BestSimilarity,
	}, nil
}

func (u *RetrieveUseCase) classifyCoverage(best float64, hits int) domain.Coverage {
	if hits == 0 || best < u.partialThreshold {
		return domain.CoverageNone
	}
	if best >= u.clearThreshold {
		return domain.CoverageClear
	}
	return domain.CoveragePartial
}
