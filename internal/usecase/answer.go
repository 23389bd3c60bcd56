package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/adapter/cache"
	"healthsense/internal/adapter/guard"
	"healthsense/internal/domain"
	"healthsense/internal/port"
)

// MsgIndexUnavailable is returned verbatim when the guideline index holds
// no content or cannot be reached.
const MsgIndexUnavailable = "The guideline index is unavailable. Please ingest guideline documents and try again."

var ErrEmptyQuestion = errors.New("question is empty")

// AnswerUseCase orchestrates the full question-answering pipeline: language
// detection, risk classification, retrieval, grounded generation, evidence
// validation, and output guardrails.
type AnswerUseCase struct {
	detector  *analyzer.LanguageDetector
	guard     *guard.Guard
	retrieve  *RetrieveUseCase
	packer    *ExcerptPacker
	prompts   *PromptRenderer
	llm       port.LLM
	validator *EvidenceValidator
	cache     *cache.AnswerCache
	store     port.IndexStore

	// language pins the answer language; "auto" detects from the question.
	language string
}

func NewAnswerUseCase(
	detector *analyzer.LanguageDetector,
	g *guard.Guard,
	retrieve *RetrieveUseCase,
	packer *ExcerptPacker,
	prompts *PromptRenderer,
	llm port.LLM,
	validator *EvidenceValidator,
	answerCache *cache.AnswerCache,
	store port.IndexStore,
	language string,
) *AnswerUseCase {
	if language == "" {
		language = "auto"
	}
	return &AnswerUseCase{
		detector:  detector,
		guard:     g,
		retrieve:  retrieve,
		packer:    packer,
		prompts:   prompts,
		llm:       llm,
		validator: validator,
		cache:     answerCache,
		store:     store,
		language:  language,
	}
}

// Answer runs the pipeline for one question. The answer is produced in the
// question's language unless a language is pinned in config.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (domain.Answer, error) {
	return u.AnswerIn(ctx, question, "")
}

// AnswerIn runs the pipeline with an explicit language override. An empty
// override falls back to the configured language or detection.
func (u *AnswerUseCase) AnswerIn(ctx context.Context, question, override string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, ErrEmptyQuestion
	}

	language := override
	if language == "" {
		language = u.language
	}
	if language == "auto" {
		language = u.detector.Detect(question)
	}
	q := domain.Query{Text: question, Language: language}

	if u.cache != nil {
		// Answers cached against an older index generation must not
		// survive a reingest, so the cache is synced on every lookup.
		if gen, err := u.store.IndexGeneration(); err == nil {
			u.cache.SyncGeneration(gen)
		}
		if cached, hit := u.cache.Get(q); hit {
			return cached, nil
		}
	}

	risk := u.guard.ClassifyQuery(question)

	stats, err := u.store.GetStats()
	if err != nil || stats.TotalChunks == 0 {
		return u.refusal(MsgIndexUnavailable, language, risk.Risk), nil
	}

	retrieval, err := u.retrieve.Retrieve(q)
	if err != nil {
		return u.refusal(MsgIndexUnavailable, language, risk.Risk), nil
	}

	if retrieval.Coverage == domain.CoverageNone {
		return u.refusal(MsgNotCovered, language, risk.Risk), nil
	}

	packed := u.packer.Pack(question, retrieval.Chunks)
	if len(packed.Excerpts) == 0 {
		return u.refusal(MsgNotCovered, language, risk.Risk), nil
	}
	excerptsBlob := FormatExcerpts(packed.Excerpts)

	systemPrompt, err := u.prompts.System(language)
	if err != nil {
		return domain.Answer{}, err
	}
	userPrompt, err := u.prompts.User(question, packed.Excerpts)
	if err != nil {
		return domain.Answer{}, err
	}

	raw, err := u.llm.GenerateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("answer generation: %w", err)
	}
	raw = strings.TrimSpace(raw)

	if raw == MsgNotCovered {
		return u.refusal(MsgNotCovered, language, risk.Risk), nil
	}

	// The evidence section must actually quote something.
	if strings.Contains(raw, evidenceHeader) && !strings.Contains(raw, ">") {
		return u.refusal(MsgNotCovered, language, risk.Risk), nil
	}

	if check := u.validator.Validate(raw, excerptsBlob); !check.OK {
		return u.refusal(MsgNotCovered, language, risk.Risk), nil
	}

	filtered, allowed := u.guard.FilterAnswer(raw)

	answer := domain.Answer{
		Language: language,
		Coverage: retrieval.Coverage,
		Risk:     risk.Risk,
	}

	if !allowed {
		answer.Text = risk.Prefix + filtered + u.guard.Disclaimer()
		answer.Grounded = false
	} else {
		answer.Grounded = true
		answer.Sources = collectSources(packed.Excerpts)
		answer.Text = risk.Prefix + filtered + u.guard.Disclaimer() + sourcesBlock(answer.Sources)
	}

	if u.cache != nil {
		u.cache.Put(q, answer)
	}

	return answer, nil
}

// refusal builds a fixed refusal answer. Refusal strings stay verbatim, so
// no prefix, disclaimer, or sources are attached.
func (u *AnswerUseCase) refusal(msg, language string, risk domain.RiskLevel) domain.Answer {
	return domain.Answer{
		Text:     msg,
		Language: language,
		Grounded: false,
		Coverage: domain.CoverageNone,
		Risk:     risk,
	}
}

func collectSources(excerpts []domain.Excerpt) []domain.Source {
	seen := make(map[string]struct{})
	var sources []domain.Source
	for _, ex := range excerpts {
		key := fmt.Sprintf("%s\x00%d", ex.Document, ex.Page)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, domain.Source{Document: ex.Document, Page: ex.Page})
	}
	return sources
}

func sourcesBlock(sources []domain.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n---\n**Sources (guidelines)**\n")
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n")
		}
		if src.Page > 0 {
			sb.WriteString(fmt.Sprintf("- **%s** — page %d", src.Document, src.Page))
		} else {
			sb.WriteString(fmt.Sprintf("- **%s**", src.Document))
		}
	}
	return sb.String()
}
