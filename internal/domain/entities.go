package domain

import "time"

// Language tags supported by the assistant. Detection falls back to English
// when the input cannot be classified.
const (
	LangEnglish = "en"
	LangHindi   = "hi"
	LangMarathi = "mr"
	LangBengali = "bn"
	LangTamil   = "ta"
	LangTelugu  = "te"
	LangSpanish = "es"
)

// SupportedLanguages lists every language tag the assistant can answer in.
var SupportedLanguages = []string{
	LangEnglish, LangHindi, LangMarathi, LangBengali, LangTamil, LangTelugu, LangSpanish,
}

// Coverage describes how well the retrieved guideline excerpts cover a question.
type Coverage string

const (
	CoverageClear   Coverage = "CLEAR"
	CoveragePartial Coverage = "PARTIAL"
	CoverageNone    Coverage = "NONE"
)

// RiskLevel classifies a question for safety handling.
type RiskLevel string

const (
	RiskGeneral   RiskLevel = "general"
	RiskSensitive RiskLevel = "sensitive"
	RiskEmergency RiskLevel = "emergency"
)

// Document is a guideline source document (a WHO/CDC/national-authority PDF
// or plain-text file in the data directory).
type Document struct {
	ID      string
	Path    string
	Title   string
	ModTime time.Time
	Pages   int
}

// Chunk is a bounded span of guideline text, immutable once indexed.
// Seq is the chunk's position within its document.
type Chunk struct {
	ID     string
	DocID  string
	Seq    int
	Page   int
	Tokens []string
	Text   string
}

// Query is a single user turn.
type Query struct {
	Text     string
	Language string
}

// ScoredChunk pairs a chunk with its retrieval score (higher is better).
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Source identifies where an answer's evidence came from.
type Source struct {
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
}

// Answer is the pipeline's response to a single query.
type Answer struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Grounded bool      `json:"grounded"`
	Coverage Coverage  `json:"coverage"`
	Risk     RiskLevel `json:"risk"`
	Sources  []Source  `json:"sources,omitempty"`
}

// Posting is a BM25 inverted-index entry.
type Posting struct {
	ChunkID string
	TF      int
}

type Stats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
}

// Session is a chat conversation with persisted history.
type Session struct {
	ID        string    `json:"id"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns,omitempty"`
}

// Turn is one message in a session transcript.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PackedExcerpts is the excerpt set selected for the LLM prompt, bounded by
// a token budget.
type PackedExcerpts struct {
	Query        string    `json:"query"`
	BudgetTokens int       `json:"budget_tokens"`
	UsedTokens   int       `json:"used_tokens"`
	Excerpts     []Excerpt `json:"excerpts"`
}

// Excerpt is a single guideline passage formatted for the prompt.
type Excerpt struct {
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
	Text     string `json:"text"`
}
