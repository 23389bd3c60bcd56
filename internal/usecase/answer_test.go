package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/adapter/cache"
	"healthsense/internal/adapter/guard"
	"healthsense/internal/adapter/memstore"
	"healthsense/internal/adapter/retriever"
	"healthsense/internal/domain"
)

type scriptedLLM struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (l *scriptedLLM) GenerateWithSystem(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	l.calls++
	l.lastSystem = systemPrompt
	l.lastUser = userPrompt
	return l.response, l.err
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func seedChunk(t *testing.T, store *memstore.MemoryStore, id, title, text string) {
	t.Helper()

	tok := analyzer.NewTokenizer()
	tokens := tok.Tokenize(text)

	docID := "doc-" + id
	if err := store.PutDoc(domain.Document{ID: docID, Title: title, Pages: 1}); err != nil {
		t.Fatalf("put doc: %v", err)
	}
	if err := store.PutChunk(domain.Chunk{
		ID:     id,
		DocID:  docID,
		Page:   1,
		Tokens: tokens,
		Text:   text,
	}); err != nil {
		t.Fatalf("put chunk: %v", err)
	}

	tf := make(map[string]int)
	for _, term := range tokens {
		tf[term]++
	}
	for term, count := range tf {
		if err := store.PutPosting(term, id, count); err != nil {
			t.Fatalf("put posting: %v", err)
		}
	}

	stats, _ := store.GetStats()
	stats.TotalDocs++
	stats.TotalChunks++
	stats.AvgChunkLen = float64(len(tokens))
	if err := store.UpdateStats(stats); err != nil {
		t.Fatalf("update stats: %v", err)
	}
}

func newPipeline(t *testing.T, store *memstore.MemoryStore, llm *scriptedLLM) *AnswerUseCase {
	t.Helper()

	tok := analyzer.NewTokenizer()
	bm25 := retriever.NewBM25Retriever(store, tok, 1.2, 0.75, 0.0)
	hybrid := retriever.NewHybridRetriever(bm25, nil, 60, 0.4)
	reranker := retriever.NewMMRReranker(tok, 0.7, 0.8)

	// Lexical-only scoring sits lower than cosine, so the thresholds here
	// are below the defaults.
	retrieve := NewRetrieveUseCase(hybrid, reranker, 6, 0.30, 0.02)
	packer := NewExcerptPacker(store, tok, 2800)

	prompts, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("prompt renderer: %v", err)
	}

	return NewAnswerUseCase(
		analyzer.NewLanguageDetector(),
		guard.New(),
		retrieve,
		packer,
		prompts,
		llm,
		NewEvidenceValidator(),
		cache.NewAnswerCache(16, time.Minute),
		store,
		"auto",
	)
}

const orsText = "Oral rehydration solution replaces fluids lost through diarrhea. Give small sips frequently and continue feeding."

const groundedResponse = `Direct Answer:
- Replace lost fluids with oral rehydration solution.
- Give small sips frequently.

Guideline Evidence:
> Oral rehydration solution replaces fluids lost through diarrhea.`

func TestAnswer_EmptyIndexReturnsUnavailable(t *testing.T) {
	store := memstore.NewMemoryStore()
	llm := &scriptedLLM{}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "how to treat diarrhea?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != MsgIndexUnavailable {
		t.Errorf("expected exact unavailable message, got %q", answer.Text)
	}
	if answer.Grounded {
		t.Error("refusal must not be grounded")
	}
	if llm.calls != 0 {
		t.Error("llm must not be called for an empty index")
	}
}

func TestAnswer_UncoveredTopicReturnsFixedRefusal(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_hygiene", "Wash hands with soap and clean water before eating.")
	llm := &scriptedLLM{}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "quarterly corporate tax filing deadlines")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != MsgNotCovered {
		t.Errorf("expected exact refusal, got %q", answer.Text)
	}
	if answer.Coverage != domain.CoverageNone {
		t.Errorf("expected NONE coverage, got %s", answer.Coverage)
	}
	if llm.calls != 0 {
		t.Error("llm must not be called when nothing is retrieved")
	}
}

func TestAnswer_GroundedAnswer(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_diarrhea", orsText)
	llm := &scriptedLLM{response: groundedResponse}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "how should diarrhea fluids be replaced with rehydration solution?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if !answer.Grounded {
		t.Fatal("expected grounded answer")
	}
	if answer.Language != domain.LangEnglish {
		t.Errorf("expected en, got %s", answer.Language)
	}
	if !strings.Contains(answer.Text, "Direct Answer:") {
		t.Error("expected model answer in output")
	}
	if !strings.Contains(answer.Text, "public health awareness") {
		t.Error("expected disclaimer appended")
	}
	if !strings.Contains(answer.Text, "guideline_diarrhea") {
		t.Error("expected sources block")
	}
	if len(answer.Sources) == 0 {
		t.Error("expected sources recorded")
	}
}

func TestAnswer_EchoesQuestionLanguage(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_dengue_hi", "डेंगू बुखार मच्छर के काटने से फैलता है। पानी जमा न होने दें और मच्छरदानी का उपयोग करें।")
	llm := &scriptedLLM{response: `Direct Answer:
- मच्छरदानी का उपयोग करें।

Guideline Evidence:
> डेंगू बुखार मच्छर के काटने से फैलता है।`}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "डेंगू बुखार मच्छर से कैसे फैलता है?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if answer.Language != domain.LangHindi {
		t.Errorf("expected hi, got %s", answer.Language)
	}
	if !strings.Contains(llm.lastSystem, "Hindi") {
		t.Error("expected system prompt to target Hindi")
	}
}

func TestAnswer_FabricatedEvidenceBecomesRefusal(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_diarrhea", orsText)
	llm := &scriptedLLM{response: `Direct Answer:
- Herbal tea cures diarrhea overnight.

Guideline Evidence:
> Herbal tea is the recommended first-line treatment for diarrhea.`}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "how should diarrhea fluids be replaced with rehydration solution?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != MsgNotCovered {
		t.Errorf("expected refusal for fabricated evidence, got %q", answer.Text)
	}
}

func TestAnswer_EvidenceSectionWithoutQuoteBecomesRefusal(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_diarrhea", orsText)
	llm := &scriptedLLM{response: `Direct Answer:
- Replace lost fluids.

Guideline Evidence:
The guideline discusses fluid replacement.`}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "how should diarrhea fluids be replaced with rehydration solution?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != MsgNotCovered {
		t.Errorf("expected refusal when evidence has no blockquote, got %q", answer.Text)
	}
}

func TestAnswer_DosageOutputIsBlocked(t *testing.T) {
	store := memstore.NewMemoryStore()
	dosed := "Adults may be given 500 mg paracetamol for fever according to the label. Rest and drink fluids."
	seedChunk(t, store, "c1", "guideline_fever", dosed)
	llm := &scriptedLLM{response: `Direct Answer:
- Take 500 mg paracetamol for the fever.

Guideline Evidence:
> Adults may be given 500 mg paracetamol for fever according to the label.`}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "what paracetamol should be given for fever fluids rest?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if answer.Grounded {
		t.Error("blocked output must not be grounded")
	}
	if !strings.Contains(answer.Text, guard.RedirectMessage) {
		t.Errorf("expected redirect message, got %q", answer.Text)
	}
	if strings.Contains(answer.Text, "500 mg") {
		t.Error("dosage text must not leak into output")
	}
}

func TestAnswer_EmergencyPrefixApplied(t *testing.T) {
	store := memstore.NewMemoryStore()
	text := "Chest pain with sweating or breathlessness needs immediate medical evaluation at an emergency department."
	seedChunk(t, store, "c1", "guideline_cardiac", text)
	llm := &scriptedLLM{response: `Direct Answer:
- Seek immediate medical evaluation.

Guideline Evidence:
> Chest pain with sweating or breathlessness needs immediate medical evaluation at an emergency department.`}
	pipeline := newPipeline(t, store, llm)

	answer, err := pipeline.Answer(context.Background(), "what to do about chest pain and breathlessness sweating emergency?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if answer.Risk != domain.RiskEmergency {
		t.Errorf("expected emergency risk, got %s", answer.Risk)
	}
	if !strings.HasPrefix(answer.Text, "⚠️") {
		t.Error("expected emergency prefix at start of answer")
	}
}

func TestAnswer_CachesByQuestionAndLanguage(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_diarrhea", orsText)
	llm := &scriptedLLM{response: groundedResponse}
	pipeline := newPipeline(t, store, llm)

	question := "how should diarrhea fluids be replaced with rehydration solution?"
	if _, err := pipeline.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := pipeline.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if llm.calls != 1 {
		t.Errorf("expected second call served from cache, llm calls=%d", llm.calls)
	}
}

func TestAnswer_ReingestDropsCachedAnswers(t *testing.T) {
	store := memstore.NewMemoryStore()
	seedChunk(t, store, "c1", "guideline_diarrhea", orsText)
	llm := &scriptedLLM{response: groundedResponse}
	pipeline := newPipeline(t, store, llm)

	question := "how should diarrhea fluids be replaced with rehydration solution?"
	if _, err := pipeline.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := pipeline.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("expected cache hit before reingest, llm calls=%d", llm.calls)
	}

	if err := store.BumpIndexGeneration(); err != nil {
		t.Fatalf("bump generation: %v", err)
	}

	if _, err := pipeline.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if llm.calls != 2 {
		t.Errorf("expected regeneration after the index advanced, llm calls=%d", llm.calls)
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	store := memstore.NewMemoryStore()
	pipeline := newPipeline(t, store, &scriptedLLM{})

	if _, err := pipeline.Answer(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty question")
	}
}
