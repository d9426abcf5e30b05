package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("SUMMARY_QUERY", "")
	t.Setenv("SUMMARY_TOP_K", "")
	t.Setenv("POLL_INTERVAL_MILLIS", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	if cfg.ChunkSize != 350 {
		t.Fatalf("expected default chunk size 350, got %d", cfg.ChunkSize)
	}
	if cfg.SummaryQuery != "Summarize this resume skills" {
		t.Fatalf("unexpected default summary query %q", cfg.SummaryQuery)
	}
	if cfg.SummaryTopK != 3 {
		t.Fatalf("expected default summary top k 3, got %d", cfg.SummaryTopK)
	}
	if cfg.PollIntervalMillis != 1000 {
		t.Fatalf("expected default poll interval 1000ms, got %d", cfg.PollIntervalMillis)
	}
	if cfg.RetryMaxAttempts != 1 {
		t.Fatalf("expected retries off by default, got %d attempts", cfg.RetryMaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("BULK_WORKERS", "8")
	t.Setenv("BREAKER_ENABLED", "true")
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	if cfg.ChunkSize != 500 {
		t.Fatalf("expected chunk size 500, got %d", cfg.ChunkSize)
	}
	if cfg.BulkWorkers != 8 {
		t.Fatalf("expected bulk workers 8, got %d", cfg.BulkWorkers)
	}
	if !cfg.BreakerEnabled {
		t.Fatalf("expected breaker enabled")
	}
}

func TestLoadAppliesYAMLOverlayUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := "chunk_size: 200\nqdrant_collection: overlay_chunks\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHUNK_SIZE", "275")
	t.Setenv("QDRANT_COLLECTION", "")

	cfg := Load()
	if cfg.ChunkSize != 275 {
		t.Fatalf("env must win over overlay, got %d", cfg.ChunkSize)
	}
	if cfg.QdrantCollection != "overlay_chunks" {
		t.Fatalf("overlay must win over default, got %q", cfg.QdrantCollection)
	}
}
