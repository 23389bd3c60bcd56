package cli

import (
	"fmt"
	"os"
	"time"

	"healthsense/config"
	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/adapter/cache"
	"healthsense/internal/adapter/embedding"
	"healthsense/internal/adapter/guard"
	"healthsense/internal/adapter/llm"
	"healthsense/internal/adapter/retriever"
	"healthsense/internal/adapter/store"
	"healthsense/internal/port"
	"healthsense/internal/usecase"
)

// openIndexStore opens the bbolt index under dir, failing when no index
// has been built yet.
func openIndexStore(dir string) (*store.BoltStore, error) {
	dbPath := config.IndexDBPath(dir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no index found at %s. Run 'healthsense ingest' first", dbPath)
	}
	return store.NewBoltStore(dbPath)
}

// buildVectorStore selects the configured vector backend.
func buildVectorStore(cfg *config.Config, st *store.BoltStore, dimension int) (port.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		return store.NewQdrantVectorStore(cfg.Vector.QdrantAddr, cfg.Vector.Collection, dimension)
	default:
		return store.NewBoltVectorStore(st.DB(), dimension)
	}
}

// buildEmbeddingStack wires the embedder and vector store. A missing API
// key degrades to lexical-only retrieval instead of failing the command.
func buildEmbeddingStack(cfg *config.Config, st *store.BoltStore) (port.Embedder, port.VectorStore) {
	embedder, err := embedding.FromConfig(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: embeddings disabled: %v\n", err)
		return nil, nil
	}

	vectorStore, err := buildVectorStore(cfg, st, embedder.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: vector store unavailable: %v\n", err)
		return nil, nil
	}

	return embedder, vectorStore
}

// buildRetrieveUseCase wires the hybrid retrieval stack.
func buildRetrieveUseCase(cfg *config.Config, st *store.BoltStore, embedder port.Embedder, vectorStore port.VectorStore) *usecase.RetrieveUseCase {
	tokenizer := analyzer.NewTokenizer()
	bm25 := retriever.NewBM25Retriever(st, tokenizer, cfg.Corpus.K1, cfg.Corpus.B, cfg.Retrieve.SourceBoost)

	var semantic *retriever.SemanticRetriever
	if cfg.Retrieve.HybridEnabled && embedder != nil && vectorStore != nil {
		semantic = retriever.NewSemanticRetriever(vectorStore, embedder, st)
	}
	hybrid := retriever.NewHybridRetriever(bm25, semantic, cfg.Retrieve.RRFK, cfg.Retrieve.BM25Weight)
	reranker := retriever.NewMMRReranker(tokenizer, cfg.Retrieve.MMRLambda, cfg.Retrieve.DedupJaccard)

	return usecase.NewRetrieveUseCase(
		hybrid,
		reranker,
		cfg.Retrieve.TopK,
		cfg.Retrieve.ClearThreshold,
		cfg.Retrieve.PartialThreshold,
	)
}

// buildAnswerPipeline wires the full question-answering pipeline.
func buildAnswerPipeline(cfg *config.Config, st *store.BoltStore) (*usecase.AnswerUseCase, error) {
	embedder, vectorStore := buildEmbeddingStack(cfg, st)
	retrieveUC := buildRetrieveUseCase(cfg, st, embedder, vectorStore)

	tokenizer := analyzer.NewTokenizer()
	packer := usecase.NewExcerptPacker(st, tokenizer, cfg.Answer.PromptBudget)

	prompts, err := usecase.NewPromptRenderer()
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.FromConfig(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to build llm client: %w", err)
	}

	ttl := time.Duration(cfg.Answer.CacheTTL)
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return usecase.NewAnswerUseCase(
		analyzer.NewLanguageDetector(),
		guard.New(),
		retrieveUC,
		packer,
		prompts,
		llmClient,
		usecase.NewEvidenceValidator(),
		cache.NewAnswerCache(cfg.Answer.CacheSize, ttl),
		st,
		cfg.Answer.Language,
	), nil
}
