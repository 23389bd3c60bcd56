package guard

import (
	"strings"
	"testing"

	"healthsense/internal/domain"
)

func TestClassifyQuery_Emergency(t *testing.T) {
	g := New()

	cases := []string{
		"I have severe chest pain right now",
		"my father is unconscious after falling",
		"what to do when someone has a heart attack",
	}

	for _, q := range cases {
		result := g.ClassifyQuery(q)
		if result.Risk != domain.RiskEmergency {
			t.Errorf("expected emergency for %q, got %s", q, result.Risk)
		}
		if !strings.Contains(result.Prefix, "emergency services") {
			t.Errorf("expected emergency prefix for %q", q)
		}
	}
}

func TestClassifyQuery_Sensitive(t *testing.T) {
	g := New()

	result := g.ClassifyQuery("Is it safe to travel during pregnancy?")
	if result.Risk != domain.RiskSensitive {
		t.Errorf("expected sensitive, got %s", result.Risk)
	}
	if !strings.Contains(result.Prefix, "not a diagnosis") {
		t.Errorf("expected sensitive prefix, got %q", result.Prefix)
	}
}

func TestClassifyQuery_General(t *testing.T) {
	g := New()

	result := g.ClassifyQuery("How often should I wash my hands?")
	if result.Risk != domain.RiskGeneral {
		t.Errorf("expected general, got %s", result.Risk)
	}
	if result.Prefix != "" {
		t.Errorf("expected empty prefix, got %q", result.Prefix)
	}
}

func TestFilterAnswer_BlocksDosage(t *testing.T) {
	g := New()

	blocked := []string{
		"Take 500 mg of paracetamol every six hours.",
		"The usual dosage for adults is shown below.",
		"Take 2 tablets after meals.",
		"I recommend taking ibuprofen for the swelling.",
		"You have dengue fever based on these symptoms.",
	}

	for _, text := range blocked {
		got, ok := g.FilterAnswer(text)
		if ok {
			t.Errorf("expected %q to be blocked", text)
		}
		if got != RedirectMessage {
			t.Errorf("expected redirect message, got %q", got)
		}
	}
}

func TestFilterAnswer_AllowsGeneralGuidance(t *testing.T) {
	g := New()

	allowed := []string{
		"Drink plenty of fluids and rest. Oral rehydration solution helps replace lost fluids.",
		"Wash hands with soap for at least twenty seconds.",
		"Fever in infants under three months needs prompt medical attention.",
	}

	for _, text := range allowed {
		got, ok := g.FilterAnswer(text)
		if !ok {
			t.Errorf("expected %q to be allowed", text)
		}
		if got != text {
			t.Errorf("expected text unchanged, got %q", got)
		}
	}
}

func TestDisclaimer(t *testing.T) {
	g := New()

	d := g.Disclaimer()
	if !strings.Contains(d, "public health awareness") {
		t.Errorf("disclaimer missing awareness statement")
	}
	if !strings.Contains(d, "prescribe") {
		t.Errorf("disclaimer missing prescription statement")
	}
}
