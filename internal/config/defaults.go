package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Resources.Path == "" {
		cfg.Resources.Path = "./resource"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./data/vector_store"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "pdf_chunks"
	}
	if cfg.Manifest.DatabasePath == "" {
		cfg.Manifest.DatabasePath = "./data/manifest.db"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 3000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 500
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Embedding.APIKey == "" {
		// Ollama ignores the key but the client requires one.
		cfg.Embedding.APIKey = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama3"
	}
	if cfg.Generation.MaxContextChunks == 0 {
		cfg.Generation.MaxContextChunks = 3
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 1
	}
}
