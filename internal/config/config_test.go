package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "pdf_chunks", cfg.Store.Collection)
	assert.Equal(t, 3000, cfg.Chunking.Size)
	assert.Equal(t, 500, cfg.Chunking.Overlap)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 1, cfg.Ingest.Workers)
}

func TestLoad_FileValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
chunking:
  size: 1000
  overlap: 100
retrieval:
  top_k: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_ExpandsRelativePaths(t *testing.T) {
	path := writeConfig(t, `
resources:
  path: ./pdfs
store:
  path: ./store
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "pdfs"), cfg.Resources.Path)
	assert.Equal(t, filepath.Join(dir, "store"), cfg.Store.Path)
	assert.True(t, filepath.IsAbs(cfg.Manifest.DatabasePath))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAPERBASE_EMBEDDING_BASE_URL", "http://remote:11434/v1")
	t.Setenv("PAPERBASE_EMBEDDING_API_KEY", "secret")
	t.Setenv("PAPERBASE_GENERATION_MODEL", "llama3:70b")

	path := writeConfig(t, `
embedding:
  base_url: http://file-value:1234/v1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://remote:11434/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "secret", cfg.Embedding.APIKey)
	assert.Equal(t, "llama3:70b", cfg.Generation.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "chunking: [broken")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_ChunkGeometry(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
		wantErr       bool
	}{
		{"valid", 3000, 500, false},
		{"overlap equals size", 500, 500, true},
		{"overlap above size", 500, 600, true},
		{"negative overlap", 500, -1, true},
		{"zero size", 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			cfg.Chunking.Size = tc.size
			cfg.Chunking.Overlap = tc.overlap
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_TopKAndWorkers(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Retrieval.TopK = 0
	assert.Error(t, cfg.Validate())

	cfg = &Config{}
	ApplyDefaults(cfg)
	cfg.Ingest.Workers = -1
	assert.Error(t, cfg.Validate())
}
