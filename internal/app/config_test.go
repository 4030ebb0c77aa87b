package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TOKTIK_CONFIG_PATH", "PORT", "OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST",
		"VECTOR_PROVIDER", "EMBEDDING_PROVIDER", "EMBEDDING_DIM", "ANALYSIS_MAX_POLLS",
		"ANALYSIS_POLL_INTERVAL", "RECOMMEND_PAGE_SIZE", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Analysis.PollInterval != 5*time.Second {
		t.Fatalf("poll interval: want=%v got=%v", 5*time.Second, cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.MaxPolls != 20 {
		t.Fatalf("max polls: want=20 got=%d", cfg.Analysis.MaxPolls)
	}
	if cfg.Embedding.Dim != 384 {
		t.Fatalf("embedding dim: want=384 got=%d", cfg.Embedding.Dim)
	}
	if cfg.Recommend.PageSize != 5 || cfg.Recommend.BufferMultiplier != 3 {
		t.Fatalf("recommend: want=5/3 got=%d/%d", cfg.Recommend.PageSize, cfg.Recommend.BufferMultiplier)
	}
	if cfg.Vector.Provider != VectorProviderPinecone || cfg.Vector.ProviderSource != providerSourceMode {
		t.Fatalf("vector provider: want=%s/%s got=%s/%s", VectorProviderPinecone, providerSourceMode, cfg.Vector.Provider, cfg.Vector.ProviderSource)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("address: want=:8080 got=%s", cfg.Address())
	}
}

func TestLoadConfigEmulatorSelectsQdrant(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_EMULATOR_HOST", "http://localhost:4443")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GCP.ObjectStorageMode != "gcs_emulator" {
		t.Fatalf("mode: want=gcs_emulator got=%s", cfg.GCP.ObjectStorageMode)
	}
	if cfg.Vector.Provider != VectorProviderQdrant {
		t.Fatalf("provider: want=%s got=%s", VectorProviderQdrant, cfg.Vector.Provider)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "toktik.yaml")
	body := `
port: "9090"
analysis:
  poll_interval: 2s
  max_polls: 7
vector:
  provider: Qdrant
  qdrant_collection: clips
embedding:
  provider: openai
  dim: 1536
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TOKTIK_CONFIG_PATH", path)
	t.Setenv("ANALYSIS_MAX_POLLS", "9")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("address: want=:9090 got=%s", cfg.Address())
	}
	if cfg.Analysis.PollInterval != 2*time.Second {
		t.Fatalf("poll interval: want=2s got=%v", cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.MaxPolls != 9 {
		t.Fatalf("env should override file: want=9 got=%d", cfg.Analysis.MaxPolls)
	}
	if cfg.Vector.Provider != VectorProviderQdrant || cfg.Vector.ProviderSource != providerSourceExplicit {
		t.Fatalf("provider: want=qdrant/explicit got=%s/%s", cfg.Vector.Provider, cfg.Vector.ProviderSource)
	}
	if cfg.Vector.QdrantCollection != "clips" {
		t.Fatalf("collection: want=clips got=%s", cfg.Vector.QdrantCollection)
	}
	if cfg.Embedding.Provider != EmbeddingProviderOpenAI || cfg.Embedding.Dim != 1536 {
		t.Fatalf("embedding: want=openai/1536 got=%s/%d", cfg.Embedding.Provider, cfg.Embedding.Dim)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
	// Untouched keys keep their defaults.
	if cfg.Recommend.PageSize != 5 {
		t.Fatalf("page size: want=5 got=%d", cfg.Recommend.PageSize)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"storage mode", "OBJECT_STORAGE_MODE", "s3"},
		{"embedding provider", "EMBEDDING_PROVIDER", "word2vec"},
		{"page size", "RECOMMEND_PAGE_SIZE", "0"},
		{"max polls", "ANALYSIS_MAX_POLLS", "-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig: expected error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TOKTIK_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig: expected error for missing file")
	}
}
