package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Corpus.ChunkTokens != 220 {
		t.Errorf("expected ChunkTokens=220, got %d", cfg.Corpus.ChunkTokens)
	}
	if cfg.Corpus.K1 != 1.2 {
		t.Errorf("expected K1=1.2, got %f", cfg.Corpus.K1)
	}
	if cfg.Retrieve.TopK != 6 {
		t.Errorf("expected TopK=6, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.ClearThreshold != 0.60 {
		t.Errorf("expected ClearThreshold=0.60, got %f", cfg.Retrieve.ClearThreshold)
	}
	if cfg.Retrieve.PartialThreshold >= cfg.Retrieve.ClearThreshold {
		t.Error("partial threshold must be below clear threshold")
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("expected groq provider, got %s", cfg.LLM.Provider)
	}
	if cfg.Vector.Backend != "bolt" {
		t.Errorf("expected bolt vector backend, got %s", cfg.Vector.Backend)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "healthsense.yaml")

	content := `
corpus:
  data_dir: /srv/guidelines
  chunk_tokens: 300
retrieve:
  top_k: 10
  clear_threshold: 0.5
llm:
  provider: openai
  model: gpt-4o-mini
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Corpus.DataDir != "/srv/guidelines" {
		t.Errorf("expected overridden data dir, got %s", cfg.Corpus.DataDir)
	}
	if cfg.Corpus.ChunkTokens != 300 {
		t.Errorf("expected ChunkTokens=300, got %d", cfg.Corpus.ChunkTokens)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.ClearThreshold != 0.5 {
		t.Errorf("expected ClearThreshold=0.5, got %f", cfg.Retrieve.ClearThreshold)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model override, got %s", cfg.LLM.Model)
	}
	// Unset sections keep defaults.
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.TopK != DefaultConfig().Retrieve.TopK {
		t.Error("expected defaults when no config file present")
	}

	content := "retrieve:\n  top_k: 3\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "healthsense.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3 from healthsense.yaml, got %d", cfg.Retrieve.TopK)
	}
}

func TestDuration_ParsesStringsAndSeconds(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "healthsense.yaml")

	content := "answer:\n  cache_ttl: 45m\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Duration(cfg.Answer.CacheTTL) != 45*time.Minute {
		t.Errorf("expected cache_ttl=45m, got %v", time.Duration(cfg.Answer.CacheTTL))
	}

	// Bare numbers are seconds.
	content = "answer:\n  cache_ttl: 90\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Duration(cfg.Answer.CacheTTL) != 90*time.Second {
		t.Errorf("expected cache_ttl=90s, got %v", time.Duration(cfg.Answer.CacheTTL))
	}

	content = "answer:\n  cache_ttl: not-a-duration\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := DefaultConfig()
	cfg.Corpus.ChunkOverlap = 55
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Corpus.ChunkOverlap != 55 {
		t.Errorf("expected ChunkOverlap=55 after round trip, got %d", loaded.Corpus.ChunkOverlap)
	}
}
