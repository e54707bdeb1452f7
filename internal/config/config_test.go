package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	content := "# comment\n" +
		"BOT_TOKEN=abc123\n" +
		"export LISTEN_ADDR=:9090\n" +
		"QUOTED=\"hello world\"\n" +
		"ALREADY_SET=from-file\n" +
		"\n" +
		"BROKEN LINE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ALREADY_SET", "from-env")
	for _, k := range []string{"BOT_TOKEN", "LISTEN_ADDR", "QUOTED"} {
		os.Unsetenv(k)
		defer os.Unsetenv(k)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("BOT_TOKEN"); got != "abc123" {
		t.Errorf("BOT_TOKEN = %q", got)
	}
	if got := os.Getenv("LISTEN_ADDR"); got != ":9090" {
		t.Errorf("LISTEN_ADDR = %q, export prefix not handled", got)
	}
	if got := os.Getenv("QUOTED"); got != "hello world" {
		t.Errorf("QUOTED = %q, quotes not stripped", got)
	}
	if got := os.Getenv("ALREADY_SET"); got != "from-env" {
		t.Errorf("ALREADY_SET = %q, file must not override environment", got)
	}
}

func TestLoadEnvFileMissingIsFine(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "CHUNK_SIZE_KB", "PROGRESS_RETENTION", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.ChunkSize != 4096*1024 {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.Retention != 30*time.Second {
		t.Errorf("Retention = %v", cfg.Retention)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("PROGRESS_RETENTION", "45s")
	t.Setenv("MAX_FILE_SIZE_MB", "100")
	cfg := FromEnv()
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Retention != 45*time.Second {
		t.Errorf("Retention = %v", cfg.Retention)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
}
