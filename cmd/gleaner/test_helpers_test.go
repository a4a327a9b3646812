package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gleaner/internal/config"
	"gleaner/internal/queue"
	"gleaner/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
}

// setupCLITestEnv writes a config file rooted in a temp directory and opens
// the store it points at, so CLI invocations and the test share one queue.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
media_dir = %q
`, cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.MediaDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	return &cliTestEnv{cfg: cfg, store: store, configPath: configPath}
}

// runCLI executes the root command with the test config and captures stdout.
func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	full := append([]string{"--config", configPath}, args...)
	cmd.SetArgs(full)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
