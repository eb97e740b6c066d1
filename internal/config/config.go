// Package config provides configuration loading and structs for the Paperbase server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Resources  ResourcesConfig  `yaml:"resources"`
	Store      StoreConfig      `yaml:"store"`
	Manifest   ManifestConfig   `yaml:"manifest"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Ingest     IngestConfig     `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ResourcesConfig holds the location of the PDF corpus.
type ResourcesConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds the vector store location and collection name.
type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ManifestConfig holds the ingest manifest database location.
type ManifestConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ChunkingConfig holds chunk window settings, in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider settings. BaseURL points at any
// OpenAI-compatible endpoint; the default is a local Ollama instance.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model            string `yaml:"model"`
	MaxContextChunks int    `yaml:"max_context_chunks"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig holds ingestion settings. Workers bounds file-level
// parallelism; 1 means fully sequential processing.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// Load reads and parses the config file at path, applies env overrides and
// defaults, expands paths, and validates. Returns an error if the file cannot
// be read or parsed, or if validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Resources.Path = expandPath(cfg.Resources.Path, configDir)
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Manifest.DatabasePath = expandPath(cfg.Manifest.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets environment variables override file values for
// endpoints and secrets, so the config file never has to hold an API key.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERBASE_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("PAPERBASE_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("PAPERBASE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("PAPERBASE_GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
}

// Validate checks chunking and retrieval parameters. Invalid chunk geometry
// must fail here, before any processing starts: an overlap at or above the
// chunk size makes the chunker's advance step non-positive and the chunk
// loop would never terminate.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must not be negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
