package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body = strings.ReplaceAll(body, "$DIR", filepath.ToSlash(dir))
	path := filepath.Join(dir, "outliner.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := runCLI(t, args...)
	if code != 0 {
		t.Fatalf("run(%v) = %d\n%s", args, code, errOut)
	}
	return out
}

const jsonConfig = `
[identity]
namespace = "cli"

[storage]
backend = "json"
path = "$DIR/outline.json"

[logging]
level = "error"
`

func TestRun_Version(t *testing.T) {
	out := mustRun(t, "-version")
	if !strings.HasPrefix(out, "Outliner dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRun_Usage(t *testing.T) {
	if _, _, code := runCLI(t); code != 2 {
		t.Errorf("no command exit = %d, want 2", code)
	}
	_, errOut, code := runCLI(t, "frobnicate")
	if code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Errorf("unknown command: code=%d stderr=%q", code, errOut)
	}
}

func TestRun_AddTreeSort(t *testing.T) {
	cfg := writeConfig(t, jsonConfig)

	mustRun(t, "-c", cfg, "add", "pear")
	mustRun(t, "-c", cfg, "add", "Apple")
	out := mustRun(t, "-c", cfg, "add", "-under", "0", "seed")
	if !strings.HasSuffix(strings.TrimSpace(out), " 0.0") {
		t.Errorf("add -under output = %q", out)
	}

	want := "- pear\n  - seed\n- Apple\n"
	if got := mustRun(t, "-c", cfg, "tree"); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}

	mustRun(t, "-c", cfg, "sort")
	want = "- Apple\n- pear\n  - seed\n"
	if got := mustRun(t, "-c", cfg, "tree"); got != want {
		t.Errorf("tree after sort =\n%s\nwant\n%s", got, want)
	}

	stats := mustRun(t, "-c", cfg, "stats")
	if !strings.Contains(stats, "nodes: 3\n") || !strings.Contains(stats, "depth: 2\n") {
		t.Errorf("stats = %q", stats)
	}
}

func TestRun_SortScript(t *testing.T) {
	cfg := writeConfig(t, jsonConfig)
	script := filepath.Join(filepath.Dir(cfg), "len.lua")
	if err := os.WriteFile(script, []byte(`function compare(a, b) return #a.headline - #b.headline end`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, h := range []string{"ccc", "a", "bb"} {
		mustRun(t, "-c", cfg, "add", h)
	}
	mustRun(t, "-c", cfg, "sort", "-script", script)
	if got := mustRun(t, "-c", cfg, "tree"); got != "- a\n- bb\n- ccc\n" {
		t.Errorf("tree = %q", got)
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := writeConfig(t, jsonConfig)

	if _, errOut, code := runCLI(t, "-c", cfg, "tree"); code != 1 || !strings.Contains(errOut, "tree") {
		t.Errorf("tree on missing document: code=%d stderr=%q", code, errOut)
	}
	mustRun(t, "-c", cfg, "add", "x")
	if _, _, code := runCLI(t, "-c", cfg, "add", "-under", "4.1", "y"); code != 1 {
		t.Errorf("add under bad path exit = %d, want 1", code)
	}
	if _, _, code := runCLI(t, "-c", cfg, "list"); code != 1 {
		t.Errorf("list on json backend exit = %d, want 1", code)
	}

	bad := writeConfig(t, "[storage]\nbackend = \"tape\"\n")
	if _, errOut, code := runCLI(t, "-c", bad, "tree"); code != 1 || !strings.Contains(errOut, "configuration") {
		t.Errorf("bad config: code=%d stderr=%q", code, errOut)
	}
}

func TestRun_ImportExportSQLite(t *testing.T) {
	jsonCfg := writeConfig(t, jsonConfig)
	mustRun(t, "-c", jsonCfg, "add", "one")
	mustRun(t, "-c", jsonCfg, "add", "-under", "0", "two")
	source := filepath.Join(filepath.Dir(jsonCfg), "outline.json")

	dbCfg := writeConfig(t, `
[identity]
namespace = "cli"

[storage]
backend = "sqlite"
path = "$DIR/outline.db"
document = "main"

[logging]
level = "error"
`)
	mustRun(t, "-c", dbCfg, "import", source)
	mustRun(t, "-c", dbCfg, "-doc", "copy", "import", source)

	if got := mustRun(t, "-c", dbCfg, "tree"); got != "- one\n  - two\n" {
		t.Errorf("tree from sqlite = %q", got)
	}
	list := mustRun(t, "-c", dbCfg, "list")
	if lines := strings.Split(strings.TrimSpace(list), "\n"); len(lines) != 2 ||
		!strings.HasPrefix(lines[0], "copy") || !strings.HasPrefix(lines[1], "main") {
		t.Errorf("list = %q", list)
	}

	exported := filepath.Join(t.TempDir(), "out.json")
	mustRun(t, "-c", dbCfg, "export", exported)
	a, _ := os.ReadFile(source)
	b, _ := os.ReadFile(exported)
	if !bytes.Equal(a, b) {
		t.Errorf("export differs from source\n%s\n%s", a, b)
	}
}
