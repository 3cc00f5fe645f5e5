package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LSRAW_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LSRAW_FORMAT", "")
	t.Setenv("LSRAW_LOG_LEVEL", "")

	cfg := Load()
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want WARN", cfg.LogLevel)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("LSRAW_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LSRAW_FORMAT", "yaml")
	t.Setenv("LSRAW_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Format != "yaml" {
		t.Errorf("Format = %q, want yaml", cfg.Format)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsraw.env")
	if err := os.WriteFile(path, []byte("LSRAW_FORMAT=json\nLSRAW_LOG_LEVEL=info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LSRAW_ENV_FILE", path)
	// godotenv keeps variables that are set, even empty ones.
	t.Setenv("LSRAW_FORMAT", "")
	t.Setenv("LSRAW_LOG_LEVEL", "")
	os.Unsetenv("LSRAW_FORMAT")
	os.Unsetenv("LSRAW_LOG_LEVEL")

	cfg := Load()
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoadBadLevel(t *testing.T) {
	t.Setenv("LSRAW_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LSRAW_LOG_LEVEL", "loud")

	if got := Load().LogLevel; got != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want WARN", got)
	}
}

func TestLoadHalfSize(t *testing.T) {
	t.Setenv("LSRAW_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	for value, want := range map[string]bool{"": false, "1": true, "true": true, "no": false} {
		t.Setenv("LSRAW_HALF_SIZE", value)
		if got := Load().HalfSize; got != want {
			t.Errorf("LSRAW_HALF_SIZE=%q: HalfSize = %v, want %v", value, got, want)
		}
	}
}
