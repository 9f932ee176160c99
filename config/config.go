// Package config loads the service configuration from a YAML file, filling
// unset fields with defaults that match the development deployment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	UploadDir      string   `yaml:"upload_dir"`
}

// QdrantConfig contains connection details for a remote Qdrant backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	Dimension int           `yaml:"dimension"`
	Qdrant    *QdrantConfig `yaml:"qdrant,omitempty"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// LLMConfig selects and configures the answering model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ChunkingConfig configures how extracted pages are split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig tunes the question-answering chain.
type RetrievalConfig struct {
	TopK            int  `yaml:"top_k"`
	MaxContextChars int  `yaml:"max_context_chars"`
	StrictFilter    bool `yaml:"strict_filter"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from path. A missing file yields the defaults; a file
// that exists but does not parse or validate is an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "flat":
	case "qdrant":
		if c.Index.Qdrant == nil {
			return errors.New("config: qdrant backend selected but index.qdrant section is missing")
		}
	default:
		return fmt.Errorf("config: unknown index backend %q", c.Index.Backend)
	}

	switch c.Embedder.Provider {
	case "stapi", "openai", "ollama":
	default:
		return fmt.Errorf("config: unknown embedder provider %q", c.Embedder.Provider)
	}

	switch c.LLM.Provider {
	case "openaichat", "gemini", "ollama":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}

	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("config: chunking overlap (%d) must be smaller than size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	return nil
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c *LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// APIKey resolves the embedder API key from the configured environment variable.
func (c *EmbedderConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// APIKey resolves the Qdrant API key from the configured environment variable.
func (c *QdrantConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			UploadDir:      "uploaded_pdfs",
		},
		Index: IndexConfig{
			Backend:   "flat",
			Path:      "data/index.bin",
			Dimension: 384,
		},
		Embedder: EmbedderConfig{
			Provider: "stapi",
			BaseURL:  "http://localhost:8081",
			Model:    "all-MiniLM-L6-v2",
		},
		LLM: LLMConfig{
			Provider:    "openaichat",
			BaseURL:     "https://litellm.dev.ai-cloud.me/v1",
			APIKeyEnv:   "GEMMA_API_KEY",
			Model:       "gemma3-27b",
			TimeoutSecs: 50,
			Temperature: 0.3,
			MaxTokens:   1000,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			MaxContextChars: 10000,
		},
	}
}

// applyDefaults re-fills fields a partial YAML file left at their zero value.
func applyDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = def.Server.UploadDir
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = def.Index.Backend
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = def.Index.Path
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = def.Index.Dimension
	}
	if cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Port == 0 {
			cfg.Index.Qdrant.Port = 6334
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "paperqa"
		}
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = def.Embedder.Provider
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = def.Embedder.BaseURL
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.LLM.Provider == "openaichat" {
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = def.LLM.BaseURL
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
		}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = def.Chunking.Size
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = def.Retrieval.MaxContextChars
	}
}
