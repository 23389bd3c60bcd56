package guard

import (
	"regexp"
	"strings"

	"healthsense/internal/domain"
)

// Guard enforces the safety boundaries of the assistant: it classifies
// incoming questions by risk and blocks generated text that crosses into
// diagnosis, prescription, or dosing territory.
type Guard struct{}

// Result of classifying a user question.
type Result struct {
	Risk   domain.RiskLevel
	Prefix string
}

var emergencyKeywords = []string{
	"chest pain",
	"severe chest pain",
	"difficulty breathing",
	"cannot breathe",
	"shortness of breath",
	"unconscious",
	"fainted",
	"stroke",
	"heart attack",
	"suicidal",
	"suicide",
}

var sensitiveKeywords = []string{
	"cancer",
	"tumor",
	"pregnant",
	"pregnancy",
	"miscarriage",
	"abortion",
	"mental health",
	"depression",
	"anxiety",
	"self harm",
}

const emergencyPrefix = "⚠️ This may represent a potential emergency.\n" +
	"Please contact your local emergency services or visit the nearest " +
	"hospital / emergency room immediately.\n\n"

const sensitivePrefix = "⚠️ This is a sensitive health topic. I can share general, public " +
	"health information, but this is **not a diagnosis**.\n\n"

const standardDisclaimer = "\n\n---\n" +
	"**Important:** I am an AI assistant for *public health awareness only*.\n" +
	"- I do **not** provide diagnosis or treatment.\n" +
	"- I cannot prescribe medicines or doses.\n" +
	"- I may not reflect the latest local medical guidelines.\n" +
	"For any persistent, severe, or unclear symptoms, please consult a registered " +
	"medical professional or your local health authority."

// RedirectMessage replaces generated text that the output filter blocked.
const RedirectMessage = "I cannot provide dosage, prescription, or diagnostic advice. " +
	"Please consult a registered medical professional for treatment decisions."

// blockedPatterns match dosage instructions, prescriptions, and diagnostic
// statements in generated output. Matching any of them blocks the answer.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(mg|mcg|μg|ml|iu|units?)\b`),
	regexp.MustCompile(`(?i)\b(dosage|dose of|doses of)\b`),
	regexp.MustCompile(`(?i)\btake\s+\d+\s+(tablet|tablets|pill|pills|capsule|capsules)\b`),
	regexp.MustCompile(`(?i)\b(once|twice|thrice|\d+\s*times)\s+(a|per)\s+day\b.*\b(tablet|pill|capsule|mg|syrup)\b`),
	regexp.MustCompile(`(?i)\bi\s+(prescribe|recommend taking)\b`),
	regexp.MustCompile(`(?i)\byou\s+(are suffering from|are diagnosed with|have been diagnosed with)\s+[a-z]`),
	regexp.MustCompile(`(?i)\byou\s+have\s+[a-z][a-z]*\s+(fever|disease|infection|cancer|diabetes)\b`),
	regexp.MustCompile(`(?i)\byour\s+diagnosis\s+is\b`),
}

func New() *Guard {
	return &Guard{}
}

// ClassifyQuery assigns a risk level to a question and returns the prefix
// to place before any answer.
func (g *Guard) ClassifyQuery(text string) Result {
	lowered := strings.ToLower(text)

	for _, keyword := range emergencyKeywords {
		if strings.Contains(lowered, keyword) {
			return Result{Risk: domain.RiskEmergency, Prefix: emergencyPrefix}
		}
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowered, keyword) {
			return Result{Risk: domain.RiskSensitive, Prefix: sensitivePrefix}
		}
	}

	return Result{Risk: domain.RiskGeneral}
}

// FilterAnswer blocks generated text containing dosage, prescription, or
// diagnostic language. It returns the redirect message and false when the
// text is blocked, or the text unchanged and true when it is allowed.
func (g *Guard) FilterAnswer(text string) (string, bool) {
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(text) {
			return RedirectMessage, false
		}
	}
	return text, true
}

// Disclaimer returns the standard disclaimer appended to every answer.
func (g *Guard) Disclaimer() string {
	return standardDisclaimer
}
