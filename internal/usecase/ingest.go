package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"healthsense/config"
	"healthsense/internal/adapter/store"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// IngestUseCase walks the guideline corpus, extracts and chunks document
// text, and maintains the lexical and vector indexes incrementally.
type IngestUseCase struct {
	store       *store.BoltStore
	walker      port.FileWalker
	extractor   port.Extractor
	chunker     port.Chunker
	embedder    port.Embedder
	vectorStore port.VectorStore

	// Progress, when set, is called once per walked file.
	Progress func(current, total int, path string)
}

func NewIngestUseCase(
	boltStore *store.BoltStore,
	walker port.FileWalker,
	extractor port.Extractor,
	chunker port.Chunker,
	embedder port.Embedder,
	vectorStore port.VectorStore,
) *IngestUseCase {
	return &IngestUseCase{
		store:       boltStore,
		walker:      walker,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		vectorStore: vectorStore,
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	FilesIngested  int
	FilesSkipped   int
	FilesDeleted   int
	ChunksCreated  int
	ChunksEmbedded int
	Errors         []string
}

// Ingest scans root and brings the index up to date. Files whose mod time
// has not advanced are skipped; files that disappeared are removed from
// both indexes.
func (u *IngestUseCase) Ingest(root string, cfg *config.Config) (*IngestResult, error) {
	result := &IngestResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	existingDocs, err := u.store.ListDocs()
	if err != nil {
		return nil, fmt.Errorf("failed to list existing docs: %w", err)
	}

	existingMap := make(map[string]domain.Document)
	for _, doc := range existingDocs {
		existingMap[doc.Path] = doc
	}

	seenPaths := make(map[string]bool)
	totalChunks := 0
	totalChunkLen := 0
	changed := false

	for i, file := range files {
		if u.Progress != nil {
			u.Progress(i+1, len(files), file.Path)
		}
		seenPaths[file.Path] = true

		if existing, ok := existingMap[file.Path]; ok {
			if existing.ModTime.Unix() >= file.ModTime {
				result.FilesSkipped++
				chunks, _ := u.store.GetChunksByDoc(existing.ID)
				for _, c := range chunks {
					totalChunks++
					totalChunkLen += len(c.Tokens)
				}
				continue
			}
			if err := u.deleteDocument(existing.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to delete stale data for %s: %v", file.Path, err))
			}
		}

		if err := u.ingestFile(file, &totalChunks, &totalChunkLen, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", file.Path, err))
			continue
		}
		result.FilesIngested++
		changed = true
	}

	for path, doc := range existingMap {
		if !seenPaths[path] {
			if err := u.deleteDocument(doc.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", path, err))
			} else {
				result.FilesDeleted++
				changed = true
			}
		}
	}

	avgChunkLen := 0.0
	if totalChunks > 0 {
		avgChunkLen = float64(totalChunkLen) / float64(totalChunks)
	}
	stats := domain.Stats{
		TotalDocs:   result.FilesIngested + result.FilesSkipped,
		TotalChunks: totalChunks,
		AvgChunkLen: avgChunkLen,
	}
	if err := u.store.UpdateStats(stats); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}
	result.ChunksCreated = totalChunks

	if err := u.store.SetManifest(store.BuildManifest(files)); err != nil {
		return nil, fmt.Errorf("failed to store corpus manifest: %w", err)
	}
	if err := u.store.CommitSchemaInfo(cfg); err != nil {
		return nil, fmt.Errorf("failed to commit schema info: %w", err)
	}
	if changed {
		if err := u.store.BumpIndexGeneration(); err != nil {
			return nil, fmt.Errorf("failed to bump index generation: %w", err)
		}
	}

	return result, nil
}

func (u *IngestUseCase) ingestFile(file port.FileInfo, totalChunks, totalChunkLen *int, result *IngestResult) error {
	pages, err := u.extractor.Extract(file.Path)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	doc := domain.Document{
		ID:      generateDocID(file.Path),
		Path:    file.Path,
		Title:   documentTitle(file.Path),
		ModTime: time.Unix(file.ModTime, 0),
		Pages:   len(pages),
	}

	chunks, err := u.chunker.Chunk(doc, pages)
	if err != nil {
		return fmt.Errorf("failed to chunk text: %w", err)
	}

	chunkCount := 0
	chunkLen := 0
	for _, chunk := range chunks {
		if err := u.store.PutChunk(chunk); err != nil {
			u.discardPartial(doc.ID, file.Path, result)
			return fmt.Errorf("failed to store chunk: %w", err)
		}

		tf := make(map[string]int)
		for _, token := range chunk.Tokens {
			tf[token]++
		}
		for term, count := range tf {
			if err := u.store.PutPosting(term, chunk.ID, count); err != nil {
				u.discardPartial(doc.ID, file.Path, result)
				return fmt.Errorf("failed to store posting: %w", err)
			}
		}

		chunkCount++
		chunkLen += len(chunk.Tokens)
	}

	if err := u.embedChunks(doc, chunks, result); err != nil {
		// Lexical index stays usable for this run. Zeroing the mod time
		// fails the skip check on the next run, so the file is re-ingested
		// and embedding retried.
		result.Errors = append(result.Errors, fmt.Sprintf("failed to embed %s: %v", file.Path, err))
		doc.ModTime = time.Time{}
	}

	// The doc record lands only after its chunks commit; a store error
	// above leaves no mod time behind to satisfy the skip check.
	if err := u.store.PutDoc(doc); err != nil {
		u.discardPartial(doc.ID, file.Path, result)
		return fmt.Errorf("failed to store document: %w", err)
	}

	*totalChunks += chunkCount
	*totalChunkLen += chunkLen
	return nil
}

// discardPartial removes whatever index data a failed ingest left behind so
// the next run starts clean.
func (u *IngestUseCase) discardPartial(docID, path string, result *IngestResult) {
	if err := u.deleteDocument(docID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to discard partial index data for %s: %v", path, err))
	}
}

func (u *IngestUseCase) embedChunks(doc domain.Document, chunks []domain.Chunk, result *IngestResult) error {
	if u.embedder == nil || u.vectorStore == nil || len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := u.embedder.Embed(texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	items := make([]port.VectorItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = port.VectorItem{
			ID:     chunk.ID,
			Vector: embeddings[i],
			Metadata: map[string]string{
				"document": doc.Title,
				"page":     fmt.Sprintf("%d", chunk.Page),
			},
		}
	}

	if err := u.vectorStore.Upsert(items); err != nil {
		return err
	}
	result.ChunksEmbedded += len(items)

	return nil
}

func (u *IngestUseCase) deleteDocument(docID string) error {
	chunks, err := u.store.GetChunksByDoc(docID)
	if err != nil {
		return err
	}

	chunkIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunkIDs = append(chunkIDs, chunk.ID)

		uniqueTerms := make(map[string]struct{})
		for _, token := range chunk.Tokens {
			uniqueTerms[token] = struct{}{}
		}
		terms := make([]string, 0, len(uniqueTerms))
		for term := range uniqueTerms {
			terms = append(terms, term)
		}
		if err := u.store.DeletePostings(chunk.ID, terms); err != nil {
			return err
		}
	}

	if u.vectorStore != nil && len(chunkIDs) > 0 {
		if err := u.vectorStore.Delete(chunkIDs); err != nil {
			return err
		}
	}

	if err := u.store.DeleteChunksByDoc(docID); err != nil {
		return err
	}

	return u.store.DeleteDoc(docID)
}

func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// documentTitle derives a human-readable title from the file name.
func documentTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
