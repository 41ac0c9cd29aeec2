package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8083")
	if err != nil || p != "8083" {
		t.Fatalf("expected fallback 8083, got %q err=%v", p, err)
	}
}

func TestIntAndSeconds(t *testing.T) {
	t.Setenv("TEST_INT", "-3")
	if got := Int("TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback for negative value, got %d", got)
	}
	t.Setenv("TEST_INT", "42")
	if got := Int("TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_TICK", "300")
	if got := Seconds("TEST_TICK", time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_BOOL", "Yes")
	if !Bool("TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_BOOL", "")
	if !Bool("TEST_BOOL", true) {
		t.Fatal("expected fallback true")
	}
	t.Setenv("TEST_LIST", " a, ,b ")
	got := List("TEST_LIST", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_A=from-file\nDOTENV_B=file-b\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_A", "from-env")
	t.Setenv("DOTENV_B", "")
	os.Unsetenv("DOTENV_B")

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("DOTENV_A"); got != "from-env" {
		t.Fatalf("expected env value to win, got %q", got)
	}
	if got := os.Getenv("DOTENV_B"); got != "file-b" {
		t.Fatalf("expected file value, got %q", got)
	}
	os.Unsetenv("DOTENV_B")
}
