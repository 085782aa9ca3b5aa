package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/outliner/internal/config"
	"github.com/dshills/outliner/internal/outline/mutate"
	"github.com/dshills/outliner/internal/outline/persist/sqlstore"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	s := config.Default()
	s.Identity.Namespace = "app"
	s.Storage.Path = filepath.Join(t.TempDir(), "outline.json")
	return s
}

func newTestApp(t *testing.T, s config.Settings) (*Application, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	a, err := New(s, Options{LogOutput: &buf})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a, &buf
}

func TestNew_JSON(t *testing.T) {
	a, _ := newTestApp(t, testSettings(t))
	if _, ok := a.Storage().(JSONStorage); !ok {
		t.Errorf("Storage() = %T, want JSONStorage", a.Storage())
	}
	if a.Generator().Namespace() != "app" {
		t.Errorf("namespace = %q", a.Generator().Namespace())
	}
}

func TestNew_RandomNamespace(t *testing.T) {
	s := testSettings(t)
	s.Identity.Namespace = ""
	a, _ := newTestApp(t, s)
	if a.Generator().Namespace() == "" {
		t.Error("expected a generated namespace")
	}
}

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	s.Storage.Backend = config.BackendSQLite
	s.Storage.Path = filepath.Join(t.TempDir(), "outline.db")
	a, _ := newTestApp(t, s)

	store, ok := a.Storage().(*sqlstore.Store)
	if !ok {
		t.Fatalf("Storage() = %T, want *sqlstore.Store", a.Storage())
	}

	doc, err := a.Documents().Create()
	if err != nil {
		t.Fatal(err)
	}
	doc.Commander.InsertTopLevel("stored")
	if err := a.Documents().SaveAs(ctx, doc, "main"); err != nil {
		t.Fatal(err)
	}
	infos, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "main" || infos[0].Nodes != 1 {
		t.Errorf("List() = %+v", infos)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Settings)
	}{
		{"dotted namespace", func(s *config.Settings) { s.Identity.Namespace = "a.b" }},
		{"bad level", func(s *config.Settings) { s.Logging.Level = "loud" }},
		{"bad backend", func(s *config.Settings) { s.Storage.Backend = "tape" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			tt.modify(&s)
			if _, err := New(s, Options{LogOutput: &bytes.Buffer{}}); !errors.Is(err, config.ErrInvalidValue) {
				t.Errorf("New() = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestNew_SharedGenerator(t *testing.T) {
	a, _ := newTestApp(t, testSettings(t))
	d1, _ := a.Documents().Create()
	d2, _ := a.Documents().Create()
	if d1.Commander.Generator() != a.Generator() || d2.Commander.Generator() != a.Generator() {
		t.Fatal("documents do not share the application generator")
	}
	r1, _ := d1.Commander.InsertTopLevel("x")
	r2, _ := d2.Commander.InsertTopLevel("y")
	if d1.Commander.Tree().ID(r1.Selection) == d2.Commander.Tree().ID(r2.Selection) {
		t.Error("two documents produced the same id")
	}
}

func TestNew_LogFile(t *testing.T) {
	s := testSettings(t)
	s.Logging.Level = "debug"
	s.Logging.File = filepath.Join(t.TempDir(), "outliner.log")
	a, err := New(s, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Logging.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "namespace app") {
		t.Errorf("log file = %q", data)
	}
}

func TestApplySettings(t *testing.T) {
	a, buf := newTestApp(t, testSettings(t))
	a.Logger().Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output at info level: %q", buf.String())
	}

	s := a.Settings()
	s.Logging.Level = "debug"
	s.Sort.IgnoreCase = true
	s.History.MaxEntries = 5
	a.ApplySettings(s)

	a.Logger().Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("level change not applied")
	}
	got := a.Settings()
	if !got.Sort.IgnoreCase {
		t.Error("sort settings not applied")
	}
	if got.History.MaxEntries != 1000 {
		t.Errorf("MaxEntries = %d, want unchanged 1000", got.History.MaxEntries)
	}

	cmp, done, err := a.Comparator()
	if err != nil {
		t.Fatal(err)
	}
	defer done()
	if n, _ := cmp(mutate.Entry{Headline: "b"}, mutate.Entry{Headline: "A"}); n >= 0 {
		t.Errorf("comparator after ApplySettings: b vs A = %d, want < 0", n)
	}
}

func TestFoldedHeadlineOrder(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"apple", "Banana", -1},
		{"Straße", "STRASSE", 1},
		{"abc", "ABC", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		got, err := FoldedHeadlineOrder(mutate.Entry{Headline: tt.a}, mutate.Entry{Headline: tt.b})
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("FoldedHeadlineOrder(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestComparator(t *testing.T) {
	a := mutate.Entry{Headline: "b"}
	b := mutate.Entry{Headline: "A"}

	cmp, done, err := Comparator(config.SortSettings{})
	if err != nil {
		t.Fatal(err)
	}
	done()
	if n, _ := cmp(a, b); n <= 0 {
		t.Errorf("default order: b vs A = %d, want > 0", n)
	}

	cmp, done, err = Comparator(config.SortSettings{IgnoreCase: true})
	if err != nil {
		t.Fatal(err)
	}
	done()
	if n, _ := cmp(a, b); n >= 0 {
		t.Errorf("folded order: b vs A = %d, want < 0", n)
	}

	path := filepath.Join(t.TempDir(), "len.lua")
	if err := os.WriteFile(path, []byte(`function compare(a, b) return #a.headline - #b.headline end`), 0o644); err != nil {
		t.Fatal(err)
	}
	cmp, done, err = Comparator(config.SortSettings{Script: path, IgnoreCase: true})
	if err != nil {
		t.Fatal(err)
	}
	defer done()
	if n, _ := cmp(mutate.Entry{Headline: "zz"}, mutate.Entry{Headline: "aaa"}); n >= 0 {
		t.Errorf("script order: zz vs aaa = %d, want < 0", n)
	}

	if _, _, err := Comparator(config.SortSettings{Script: filepath.Join(t.TempDir(), "none.lua")}); err == nil {
		t.Error("expected an error for a missing script")
	}
}
