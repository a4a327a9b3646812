package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gleaner/internal/config"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("unexpected default workers: %d", cfg.Workflow.Workers)
	}
	if cfg.Fetch.MaxAttempts != 3 {
		t.Fatalf("unexpected default max attempts: %d", cfg.Fetch.MaxAttempts)
	}
	if len(cfg.Platforms.Enabled) == 0 {
		t.Fatal("expected default enabled platforms")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
workers = 2

[platforms]
enabled = [" TikTok ", "YOUTUBE"]

[platforms.rate_limits]
TikTok = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%s", exists, resolved)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("unexpected workers: %d", cfg.Workflow.Workers)
	}
	if cfg.Platforms.Enabled[0] != "tiktok" || cfg.Platforms.Enabled[1] != "youtube" {
		t.Fatalf("platforms not normalized: %v", cfg.Platforms.Enabled)
	}
	if cfg.Platforms.RateLimits["tiktok"] != 30 {
		t.Fatalf("rate limit key not normalized: %v", cfg.Platforms.RateLimits)
	}
}

func TestValidateRejectsBadTimeouts(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.RequestTimeout = 60
	cfg.Fetch.WorkerTimeout = 30
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "request_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsEmptyAllowList(t *testing.T) {
	cfg := config.Default()
	cfg.Platforms.Enabled = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty allow-list")
	}
}

func TestValidateRequiresMediaDirForDownloads(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.DownloadMedia = true
	cfg.Paths.MediaDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing media dir")
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
