package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testPrefix keeps the tests independent of the real environment.
const testPrefix = "OUTLINER_TEST_"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := New(WithEnvPrefix(""))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := c.Settings()
	if s.History.MaxEntries != 1000 || s.History.CoalesceWindow != 2*time.Second {
		t.Errorf("history = %+v", s.History)
	}
	if s.Logging.Level != "info" || s.Storage.Backend != BackendJSON {
		t.Errorf("settings = %+v", s)
	}
	if s != Default() {
		t.Errorf("Default() = %+v, want %+v", Default(), s)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "outliner.toml", `
[identity]
namespace = "alice"

[history]
maxEntries = 50
coalesceWindow = "500ms"

[storage]
backend = "SQLite"
path = "notes.db"

[sort]
ignoreCase = true
`)
	c := New(WithFile(path), WithEnvPrefix(testPrefix))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := c.Settings()
	if s.Identity.Namespace != "alice" {
		t.Errorf("namespace = %q", s.Identity.Namespace)
	}
	if s.History.MaxEntries != 50 || s.History.CoalesceWindow != 500*time.Millisecond {
		t.Errorf("history = %+v", s.History)
	}
	if s.Storage.Backend != BackendSQLite || s.Storage.Path != "notes.db" || s.Storage.Document != "main" {
		t.Errorf("storage = %+v", s.Storage)
	}
	if !s.Sort.IgnoreCase {
		t.Error("sort.ignoreCase not set")
	}
	if v, ok := c.Get("history.maxEntries"); !ok || v != int64(50) {
		t.Errorf("Get(history.maxEntries) = %v, %v", v, ok)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "outliner.yaml", `
history:
  coalesceWindow: 3
logging:
  level: debug
`)
	c := New(WithFile(path), WithEnvPrefix(testPrefix))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := c.Settings()
	if s.History.CoalesceWindow != 3*time.Second {
		t.Errorf("coalesceWindow = %v, want 3s", s.History.CoalesceWindow)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("level = %q", s.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "outliner.toml", "[identity]\nnamespace = \"file\"\n")
	t.Setenv(testPrefix+"NAMESPACE", "env")
	t.Setenv(testPrefix+"HISTORY_MAX_ENTRIES", "7")

	c := New(WithFile(path), WithEnvPrefix(testPrefix))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := c.Settings()
	if s.Identity.Namespace != "env" || s.History.MaxEntries != 7 {
		t.Errorf("settings = %+v, want env values", s)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"type mismatch", "a.toml", "[history]\nmaxEntries = \"many\"\n", ErrTypeMismatch},
		{"bad namespace", "b.toml", "[identity]\nnamespace = \"a.b\"\n", ErrInvalidValue},
		{"negative entries", "c.toml", "[history]\nmaxEntries = -1\n", ErrInvalidValue},
		{"bad backend", "d.yaml", "storage:\n  backend: ftp\n", ErrInvalidValue},
		{"bad level", "e.yaml", "logging:\n  level: loud\n", ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithFile(writeFile(t, tt.file, tt.content)), WithEnvPrefix(testPrefix))
			if err := c.Load(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Load() = %v, want %v", err, tt.want)
			}
			// The defaults survive a failed load.
			if c.Settings().History.MaxEntries != 1000 {
				t.Error("failed load changed the settings")
			}
		})
	}
}

func TestParseErrorSurfaced(t *testing.T) {
	c := New(WithFile(writeFile(t, "bad.toml", "[history\n")), WithEnvPrefix(testPrefix))
	var perr *ParseError
	if err := c.Load(context.Background()); !errors.As(err, &perr) {
		t.Errorf("Load() = %v, want *ParseError", err)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	c := New(WithFile(filepath.Join(t.TempDir(), "none.toml")), WithEnvPrefix(testPrefix))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Settings().History.MaxEntries != 1000 {
		t.Error("defaults not applied")
	}
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	if got := FindFile(dir); got != "" {
		t.Errorf("FindFile(empty) = %q", got)
	}
	yml := filepath.Join(dir, "outliner.yml")
	os.WriteFile(yml, nil, 0o644)
	if got := FindFile(dir); got != yml {
		t.Errorf("FindFile() = %q, want %q", got, yml)
	}
	toml := filepath.Join(dir, "outliner.toml")
	os.WriteFile(toml, nil, 0o644)
	if got := FindFile(dir); got != toml {
		t.Errorf("FindFile() = %q, want toml first", got)
	}
}

func TestReload(t *testing.T) {
	path := writeFile(t, "outliner.toml", "[history]\nmaxEntries = 10\n")
	c := New(WithFile(path), WithEnvPrefix(testPrefix))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	var got []int
	var errs int
	c.OnReload(func(s Settings, err error) {
		if err != nil {
			errs++
			return
		}
		got = append(got, s.History.MaxEntries)
	})

	os.WriteFile(path, []byte("[history]\nmaxEntries = 20\n"), 0o644)
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte("[history\n"), 0o644)
	if err := c.Reload(); err == nil {
		t.Fatal("Reload() of a broken file succeeded")
	}

	if len(got) != 1 || got[0] != 20 || errs != 1 {
		t.Errorf("handler saw %v with %d errors", got, errs)
	}
	if c.Settings().History.MaxEntries != 20 {
		t.Error("broken reload replaced the settings")
	}
}

func TestWatcherReloads(t *testing.T) {
	path := writeFile(t, "outliner.toml", "[logging]\nlevel = \"info\"\n")
	c := New(WithFile(path), WithEnvPrefix(testPrefix), WithWatcher(true))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	levels := make(chan string, 10)
	c.OnReload(func(s Settings, err error) {
		if err == nil {
			levels <- s.Logging.Level
		}
	})
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case lvl := <-levels:
			if lvl == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("watcher did not reload the file")
		}
	}
}
