package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the HealthSense engine.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Answer    AnswerConfig    `yaml:"answer"`
	Server    ServerConfig    `yaml:"server"`
}

// CorpusConfig controls guideline document ingestion.
type CorpusConfig struct {
	DataDir      string   `yaml:"data_dir"`
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkTokens  int      `yaml:"chunk_tokens"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	K1           float64  `yaml:"k1"`
	B            float64  `yaml:"b"`
}

// RetrieveConfig holds retrieval and coverage configuration.
type RetrieveConfig struct {
	TopK             int     `yaml:"top_k"`
	MMRLambda        float64 `yaml:"mmr_lambda"`
	DedupJaccard     float64 `yaml:"dedup_jaccard"`
	SourceBoost      float64 `yaml:"source_boost_weight"`
	HybridEnabled    bool    `yaml:"hybrid_enabled"`
	RRFK             int     `yaml:"rrf_k"`
	BM25Weight       float64 `yaml:"bm25_weight"`
	ClearThreshold   float64 `yaml:"clear_threshold"`
	PartialThreshold float64 `yaml:"partial_threshold"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "jina", "ollama", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig holds answer-generation model configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "groq", "openai", "local"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Backend    string `yaml:"backend"` // "bolt" or "qdrant"
	QdrantAddr string `yaml:"qdrant_addr"`
	Collection string `yaml:"collection"`
}

// AnswerConfig controls the answering pipeline.
type AnswerConfig struct {
	Language     string   `yaml:"language"` // "auto" or a fixed language tag
	PromptBudget int      `yaml:"prompt_budget"`
	CacheSize    int      `yaml:"cache_size"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// Duration wraps time.Duration so YAML can carry values like "10m". Bare
// numbers are read as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	MessageCap int    `yaml:"message_cap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			DataDir:      "data/raw",
			Includes:     []string{"**/*.pdf", "**/*.txt", "**/*.md"},
			Excludes:     []string{"**/.healthsense/**", "**/.git/**"},
			ChunkTokens:  220,
			ChunkOverlap: 40,
			K1:           1.2,
			B:            0.75,
		},
		Retrieve: RetrieveConfig{
			TopK:             6,
			MMRLambda:        0.7,
			DedupJaccard:     0.8,
			SourceBoost:      0.2,
			HybridEnabled:    true,
			RRFK:             60,
			BM25Weight:       0.4,
			ClearThreshold:   0.60,
			PartialThreshold: 0.35,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.1-8b-instant",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.0,
			MaxTokens:   650,
		},
		Vector: VectorConfig{
			Backend:    "bolt",
			QdrantAddr: "localhost:6334",
			Collection: "healthsense",
		},
		Answer: AnswerConfig{
			Language:     "auto",
			PromptBudget: 2800,
			CacheSize:    128,
			CacheTTL:     Duration(10 * time.Minute),
		},
		Server: ServerConfig{
			Addr:       ":8080",
			MessageCap: 40,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for healthsense.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "healthsense.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".healthsense", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".healthsense", "index.db")
}

// EnsureStateDir ensures the .healthsense directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".healthsense"), 0755)
}
