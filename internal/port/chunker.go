package port

import "healthsense/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document, pages []PageText) ([]domain.Chunk, error)
}

// PageText is extracted text with its page number (0 for plain-text sources).
type PageText struct {
	Page int
	Text string
}
