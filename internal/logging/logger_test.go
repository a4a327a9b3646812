package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gleaner/internal/logging"
)

func TestNewJSONWritesStructuredRecords(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gleaner.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("job claimed",
		logging.String(logging.FieldPlatform, "tiktok"),
		logging.Int64(logging.FieldJobID, 42),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if record["msg"] != "job claimed" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["platform"] != "tiktok" {
		t.Fatalf("unexpected platform: %v", record["platform"])
	}
	if record["job_id"] != float64(42) {
		t.Fatalf("unexpected job_id: %v", record["job_id"])
	}
}

func TestNewConsolePrefixesComponent(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "console.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.WithComponent(logger, "worker").Info("claim cycle", logging.Int("workers", 4))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, "INFO worker: claim cycle") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "workers=4") {
		t.Fatalf("expected workers attribute, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "filtered.log")

	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "dropped") {
		t.Fatalf("info record should be filtered: %q", content)
	}
	if !strings.Contains(content, "kept") {
		t.Fatalf("warn record missing: %q", content)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored", logging.Error(os.ErrNotExist))
}
