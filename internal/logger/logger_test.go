package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToCacheLogFile(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Cleanup(Close)

	if err := Init(false); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	want := filepath.Join(cache, "plexaddons", "plexaddons.log")
	if got := GetLogPath(); got != want {
		t.Fatalf("GetLogPath() = %q, want %q", got, want)
	}

	Info("Registry fetched", "addons", 3)
	Debug("hidden at info level")
	Close()

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Registry fetched") {
		t.Fatalf("expected info message in log, got %q", content)
	}
	if strings.Contains(content, "hidden at info level") {
		t.Fatalf("debug message should not be logged without verbose, got %q", content)
	}
}

func TestInitVerboseEnablesDebug(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Cleanup(Close)

	if err := Init(true); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := Log.GetLevel().String(); got != "debug" {
		t.Fatalf("expected debug level, got %s", got)
	}
}
