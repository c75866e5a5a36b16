package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/similarity"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "SIMILARITY_THRESHOLD", "GROUPING_STRATEGY", "GROUP_KEY", "STORAGE_BACKEND")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SimilarityThreshold != 0.5 {
		t.Fatalf("expected default threshold 0.5, got %v", cfg.SimilarityThreshold)
	}
	if cfg.GroupingStrategy != "constant" || cfg.GroupKey != "doc" {
		t.Fatalf("expected constant grouping on key doc, got %q/%q", cfg.GroupingStrategy, cfg.GroupKey)
	}
	if cfg.StorageBackend != StorageLocalFS {
		t.Fatalf("expected localfs storage, got %q", cfg.StorageBackend)
	}
	if cfg.TransformTimeout() != 5*time.Minute {
		t.Fatalf("unexpected transform timeout %v", cfg.TransformTimeout())
	}
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsim.yaml")
	body := []byte("similarity_threshold: 0.7\ngrouping_strategy: id_prefix\nmax_group_documents: 10\napi_port: \"9000\"\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	clearEnv(t, "GROUPING_STRATEGY", "MAX_GROUP_DOCUMENTS", "STORAGE_BACKEND")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")
	t.Setenv("SIMILARITY_THRESHOLD", "0.8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SimilarityThreshold != 0.8 {
		t.Fatalf("env must override file threshold, got %v", cfg.SimilarityThreshold)
	}
	if cfg.APIPort != "9100" {
		t.Fatalf("env must override file port, got %q", cfg.APIPort)
	}
	if cfg.GroupingStrategy != similarity.StrategyIDPrefix || cfg.MaxGroupDocuments != 10 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.NATSRunSubject != "similarity.runs" {
		t.Fatalf("defaults must survive the overlay, got %q", cfg.NATSRunSubject)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "GROUPING_STRATEGY", "STORAGE_BACKEND")
	t.Setenv("SIMILARITY_THRESHOLD", "1.0")

	_, err := Load()
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoadRejectsNaNThreshold(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "GROUPING_STRATEGY", "STORAGE_BACKEND")
	t.Setenv("SIMILARITY_THRESHOLD", "NaN")

	_, err := Load()
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for NaN threshold, got %v", err)
	}
}

func TestValidateRejectsUnknownStrategyAndBackend(t *testing.T) {
	cfg := Default()
	cfg.GroupingStrategy = "minhash"
	cfg.StorageBackend = "ftp"

	if err := cfg.Validate(); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidateS3RequiresEndpoint(t *testing.T) {
	cfg := Default()
	cfg.StorageBackend = StorageS3

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for s3 without endpoint")
	}
	cfg.S3Endpoint = "localhost:9000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestInvalidNumericEnvKeepsFallback(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "GROUPING_STRATEGY", "STORAGE_BACKEND", "SIMILARITY_THRESHOLD")
	t.Setenv("MAX_GROUP_WORDS", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxGroupWords != Default().MaxGroupWords {
		t.Fatalf("expected fallback max group words, got %d", cfg.MaxGroupWords)
	}
}

func TestResilienceConversion(t *testing.T) {
	cfg := Default()
	cfg.ResilienceRetryInitialBackoffMS = 250
	res := cfg.Resilience()
	if res.RetryInitialBackoff != 250*time.Millisecond {
		t.Fatalf("unexpected backoff %v", res.RetryInitialBackoff)
	}
	if !res.BreakerEnabled {
		t.Fatalf("expected breaker enabled by default")
	}
}
