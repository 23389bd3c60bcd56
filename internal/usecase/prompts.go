package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"healthsense/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// PromptRenderer renders the system and user prompts from embedded
// templates.
type PromptRenderer struct {
	system *template.Template
	user   *template.Template
}

type systemPromptData struct {
	LanguageName string
	Fallback     string
}

type userPromptData struct {
	Question string
	Excerpts []domain.Excerpt
	Fallback string
}

func NewPromptRenderer() (*PromptRenderer, error) {
	funcs := template.FuncMap{
		"formatExcerpts": FormatExcerpts,
	}

	system, err := loadTemplate("templates/system_prompt.txt", funcs)
	if err != nil {
		return nil, err
	}
	user, err := loadTemplate("templates/user_prompt.txt", funcs)
	if err != nil {
		return nil, err
	}

	return &PromptRenderer{system: system, user: user}, nil
}

func loadTemplate(name string, funcs template.FuncMap) (*template.Template, error) {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// System renders the system prompt for the given language tag.
func (r *PromptRenderer) System(language string) (string, error) {
	var buf bytes.Buffer
	err := r.system.Execute(&buf, systemPromptData{
		LanguageName: languageName(language),
		Fallback:     MsgNotCovered,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return buf.String(), nil
}

// User renders the user prompt with the packed excerpts.
func (r *PromptRenderer) User(question string, excerpts []domain.Excerpt) (string, error) {
	var buf bytes.Buffer
	err := r.user.Execute(&buf, userPromptData{
		Question: question,
		Excerpts: excerpts,
		Fallback: MsgNotCovered,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return buf.String(), nil
}

// FormatExcerpts renders excerpts the way they appear in the prompt. The
// evidence validator matches against this same rendering.
func FormatExcerpts(excerpts []domain.Excerpt) string {
	var sb strings.Builder
	for i, ex := range excerpts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Excerpt %d | Source: %s | Page: %d]\n", i+1, ex.Document, ex.Page))
		sb.WriteString(strings.TrimSpace(ex.Text))
	}
	return sb.String()
}

func languageName(tag string) string {
	switch tag {
	case domain.LangHindi:
		return "Hindi"
	case domain.LangMarathi:
		return "Marathi"
	case domain.LangBengali:
		return "Bengali"
	case domain.LangTamil:
		return "Tamil"
	case domain.LangTelugu:
		return "Telugu"
	case domain.LangSpanish:
		return "Spanish"
	default:
		return "international English"
	}
}
