package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/grace" {
		t.Errorf("expected /custom/data/grace, got %s", got)
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	os.Unsetenv("HOME")
	t.Cleanup(func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		}
	})

	result := DefaultDataDir()
	if result == "" {
		t.Error("expected non-empty result even when HOME is not set")
	}
	if result != "./data" {
		t.Errorf("expected fallback to ./data, got %s", result)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Errorf("current directory should be a dir")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Errorf("missing path should not be a dir")
	}
}

func TestDefaultDataDirShape(t *testing.T) {
	os.Unsetenv("XDG_DATA_HOME")
	result := DefaultDataDir()
	if result == "" {
		t.Error("DefaultDataDir should not return empty string")
	}
	if !filepath.IsAbs(result) && !strings.HasPrefix(result, "./") {
		t.Errorf("want absolute path or ./ prefix, got %s", result)
	}
	lower := strings.ToLower(result)
	if !strings.HasSuffix(lower, "grace") && result != "./data" {
		t.Errorf("want a grace-suffixed dir, got %s", result)
	}
}
