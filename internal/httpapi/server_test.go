package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/adapter/cache"
	"healthsense/internal/adapter/guard"
	"healthsense/internal/adapter/memstore"
	"healthsense/internal/adapter/retriever"
	"healthsense/internal/domain"
	"healthsense/internal/usecase"
)

type staticLLM struct {
	response string
}

func (l *staticLLM) GenerateWithSystem(context.Context, string, string) (string, error) {
	return l.response, nil
}

func (l *staticLLM) ModelName() string { return "static" }

func newTestServer(t *testing.T, store *memstore.MemoryStore, llmResponse string) *Server {
	t.Helper()

	tok := analyzer.NewTokenizer()
	bm25 := retriever.NewBM25Retriever(store, tok, 1.2, 0.75, 0.0)
	hybrid := retriever.NewHybridRetriever(bm25, nil, 60, 0.4)
	reranker := retriever.NewMMRReranker(tok, 0.7, 0.8)
	retrieve := usecase.NewRetrieveUseCase(hybrid, reranker, 6, 0.30, 0.02)
	packer := usecase.NewExcerptPacker(store, tok, 2800)

	prompts, err := usecase.NewPromptRenderer()
	if err != nil {
		t.Fatalf("prompt renderer: %v", err)
	}

	answer := usecase.NewAnswerUseCase(
		analyzer.NewLanguageDetector(),
		guard.New(),
		retrieve,
		packer,
		prompts,
		&staticLLM{response: llmResponse},
		usecase.NewEvidenceValidator(),
		cache.NewAnswerCache(16, time.Minute),
		store,
		"auto",
	)

	return NewServer(answer, store, store, 4)
}

func seedIndex(t *testing.T, store *memstore.MemoryStore) {
	t.Helper()

	tok := analyzer.NewTokenizer()
	text := "Wash hands with soap and clean water for at least twenty seconds before eating."
	tokens := tok.Tokenize(text)

	if err := store.PutDoc(domain.Document{ID: "d1", Title: "guideline_hygiene", Pages: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutChunk(domain.Chunk{ID: "c1", DocID: "d1", Page: 1, Tokens: tokens, Text: text}); err != nil {
		t.Fatal(err)
	}
	tf := make(map[string]int)
	for _, term := range tokens {
		tf[term]++
	}
	for term, count := range tf {
		if err := store.PutPosting(term, "c1", count); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpdateStats(domain.Stats{TotalDocs: 1, TotalChunks: 1, AvgChunkLen: float64(len(tokens))}); err != nil {
		t.Fatal(err)
	}
}

const hygieneResponse = `Direct Answer:
- Wash hands with soap before eating.

Guideline Evidence:
> Wash hands with soap and clean water for at least twenty seconds before eating.`

func TestHealthz(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
	if body["chunks"].(float64) != 1 {
		t.Errorf("expected 1 chunk, got %v", body["chunks"])
	}
}

func TestAsk_GroundedAnswer(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question":"how long should hands be washed with soap and water?"}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var answer domain.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !answer.Grounded {
		t.Error("expected grounded answer")
	}
	if answer.Language != domain.LangEnglish {
		t.Errorf("expected en, got %s", answer.Language)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"  "}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSessions_CreateAndMessage(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var sess domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected session id")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/messages",
		strings.NewReader(`{"message":"how long should hands be washed with soap and water?"}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(stored.Turns) != 2 {
		t.Errorf("expected user and assistant turns persisted, got %d", len(stored.Turns))
	}
}

func TestSessions_UnknownSession(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/nope/messages",
		strings.NewReader(`{"message":"hello"}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSessions_MessageCap(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	sess := domain.Session{ID: "full", CreatedAt: time.Now()}
	if err := store.PutSession(sess); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := store.AppendTurn("full", domain.Turn{Role: "user", Content: "q"}); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/full/messages",
		strings.NewReader(`{"message":"one more question about handwashing"}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestSessions_RejectsUnsupportedLanguage(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedIndex(t, store)
	srv := newTestServer(t, store, hygieneResponse)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"language":"fr"}`))
	req.Header.Set(echoContentType, "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

const echoContentType = "Content-Type"
