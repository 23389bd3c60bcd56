package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MsgNotCovered is returned verbatim when the guidelines do not cover a
// question. Validation treats an answer equal to it as trivially grounded.
const MsgNotCovered = "The guideline does not provide information on this topic."

// EvidenceCheck is the outcome of validating a generated answer against
// the excerpts it was given.
type EvidenceCheck struct {
	OK     bool
	Reason string
}

// EvidenceValidator enforces strict grounding: every answer must carry a
// "Guideline Evidence:" section whose blockquoted lines appear verbatim in
// the retrieved excerpts, with no inference language.
type EvidenceValidator struct{}

const evidenceHeader = "Guideline Evidence:"

var stopHeaders = []string{"Sources", "Source", "Direct Answer", "Notes", "Disclaimer"}

var inferencePhrases = []string{
	"अनुमान", "अंदाजा", "यह अनुमान लगाया जा सकता है", "यह माना जा सकता है",
	"likely", "probably", "can be inferred", "suggests that", "it seems",
	"we can assume", "no direct reference",
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

func NewEvidenceValidator() *EvidenceValidator {
	return &EvidenceValidator{}
}

// Validate checks a raw model answer against the excerpt blob it was
// generated from.
func (v *EvidenceValidator) Validate(rawAnswer, excerptsBlob string) EvidenceCheck {
	if rawAnswer == "" {
		return EvidenceCheck{false, "empty_answer"}
	}

	answer := normalizeText(rawAnswer)
	if answer == MsgNotCovered {
		return EvidenceCheck{true, "fallback_ok"}
	}

	evidence := normalizeText(extractSection(rawAnswer, evidenceHeader))
	if evidence == "" {
		return EvidenceCheck{false, "missing_evidence_section"}
	}

	if strings.Contains(strings.ToLower(evidence), strings.ToLower(MsgNotCovered)) {
		return EvidenceCheck{false, "evidence_is_fallback"}
	}

	if containsInferenceLanguage(evidence) {
		return EvidenceCheck{false, "inference_detected"}
	}

	if !evidenceIsVerbatim(evidence, excerptsBlob) {
		return EvidenceCheck{false, "evidence_not_verbatim"}
	}

	return EvidenceCheck{true, "evidence_ok"}
}

func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		" ", " ",
		"“", `"`,
		"”", `"`,
		"’", "'",
		"‘", "'",
	)
	s = replacer.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// extractSection returns the text following header, stopping at the next
// known section header.
func extractSection(text, header string) string {
	if text == "" {
		return ""
	}

	idx := indexFold(text, header)
	if idx < 0 {
		return ""
	}
	after := text[idx+len(header):]

	stopIdx := len(after)
	for _, h := range stopHeaders {
		pat := regexp.MustCompile(`(?i)\n\s*` + regexp.QuoteMeta(h) + `\s*:`)
		if loc := pat.FindStringIndex(after); loc != nil && loc[0] < stopIdx {
			stopIdx = loc[0]
		}
	}

	return strings.TrimSpace(after[:stopIdx])
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

func containsInferenceLanguage(evidence string) bool {
	if evidence == "" {
		return true
	}
	lowered := strings.ToLower(evidence)
	for _, phrase := range inferencePhrases {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// evidenceIsVerbatim requires at least one blockquoted evidence line of 12+
// characters to appear verbatim in the excerpt blob.
func evidenceIsVerbatim(evidence, excerptsBlob string) bool {
	ev := normalizeText(evidence)
	ex := normalizeText(excerptsBlob)
	if ev == "" || ex == "" {
		return false
	}

	var lines []string
	for _, ln := range strings.Split(ev, "\n") {
		ln = strings.TrimSpace(ln)
		if strings.HasPrefix(ln, ">") {
			lines = append(lines, normalizeText(strings.TrimSpace(strings.TrimLeft(ln, ">"))))
		}
	}

	if len(lines) == 0 {
		for _, part := range regexp.MustCompile(`\n|- `).Split(ev, -1) {
			if p := normalizeText(part); p != "" {
				lines = append(lines, p)
			}
		}
	}

	for _, ln := range lines {
		if utf8.RuneCountInString(ln) >= 12 && strings.Contains(ex, ln) {
			return true
		}
	}

	return false
}
