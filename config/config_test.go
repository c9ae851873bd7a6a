package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Default()
	applyEnv(mapLookup(map[string]string{
		"PORT":                   "8081",
		"SEGMENT_SECONDS":        "30",
		"RECOGNIZER_PUNCTUATION": "false",
		"REDIS_HOST":             "  cache.local ",
		"TARGET_SAMPLE_RATE":     "not-a-number",
		"UPLOAD_DIR":             "   ",
	}), cfg)

	if cfg.Port != "8081" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.SegmentSeconds != 30 {
		t.Fatalf("segment seconds = %d", cfg.SegmentSeconds)
	}
	if cfg.RecognizerPunctuation {
		t.Fatal("punctuation should be disabled")
	}
	if cfg.RedisHost != "cache.local" || !cfg.RedisEnabled() {
		t.Fatalf("redis host = %q", cfg.RedisHost)
	}
	if cfg.TargetSampleRate != 16000 {
		t.Fatalf("invalid int should keep default, got %d", cfg.TargetSampleRate)
	}
	if cfg.UploadDir != "uploads" {
		t.Fatalf("blank string should keep default, got %q", cfg.UploadDir)
	}
	if cfg.MinioEnabled() || cfg.DBEnabled() {
		t.Fatal("minio and db should be disabled by default")
	}
	if cfg.WebAppDir != "" {
		t.Fatalf("web app dir should be unset by default, got %q", cfg.WebAppDir)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.RecognizerBackend = "http"
	if err := cfg.Validate(); err == nil {
		t.Fatal("http backend without url should fail")
	}

	cfg = Default()
	cfg.SegmentSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero segment length should fail")
	}

	cfg = Default()
	cfg.RecognizerBackend = "gpu"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestLoadFileAppliesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioscribe.yaml")
	content := "port: \"9000\"\nrecognizer_backend: stub\nsegment_seconds: 45\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SEGMENT_SECONDS", "20")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "9000" && os.Getenv("PORT") == "" {
		t.Fatalf("port = %q, want 9000", cfg.Port)
	}
	if cfg.RecognizerBackend != "stub" && os.Getenv("RECOGNIZER_BACKEND") == "" {
		t.Fatalf("backend = %q, want stub", cfg.RecognizerBackend)
	}
	if cfg.SegmentSeconds != 20 {
		t.Fatalf("env should override yaml, got %d", cfg.SegmentSeconds)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
