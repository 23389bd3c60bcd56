package port

import "healthsense/internal/domain"

type IndexStore interface {
	PutDoc(doc domain.Document) error

	GetDoc(id string) (domain.Document, error)

	DeleteDoc(id string) error

	ListDocs() ([]domain.Document, error)

	PutChunk(chunk domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	// GetChunks loads the chunks for the given IDs in one pass; IDs with no
	// stored chunk are skipped.
	GetChunks(ids []string) ([]domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	DeleteChunksByDoc(docID string) error

	PutPosting(term string, chunkID string, tf int) error

	GetPostings(term string) ([]domain.Posting, error)

	DeletePostings(chunkID string, terms []string) error

	GetStats() (domain.Stats, error)

	UpdateStats(stats domain.Stats) error

	// IndexGeneration is a counter bumped on every ingest run that changed
	// the index; cached answers produced against an older generation are
	// dropped.
	IndexGeneration() (uint64, error)

	Close() error
}

// SessionStore persists chat sessions and transcripts.
type SessionStore interface {
	PutSession(s domain.Session) error

	GetSession(id string) (domain.Session, error)

	AppendTurn(sessionID string, turn domain.Turn) error
}
