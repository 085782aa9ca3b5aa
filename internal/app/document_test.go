package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/persist"
)

// memStorage keeps documents in a map.
type memStorage struct {
	mu   sync.Mutex
	docs map[string]persist.Document
	fail error
}

func newMemStorage() *memStorage {
	return &memStorage{docs: make(map[string]persist.Document)}
}

func (m *memStorage) Load(_ context.Context, name string) (persist.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[name]
	if !ok {
		return persist.Document{}, os.ErrNotExist
	}
	return doc, nil
}

func (m *memStorage) Save(_ context.Context, name string, doc persist.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.docs[name] = doc
	return nil
}

func newManager(st Storage) *DocumentManager {
	return NewDocumentManager(st, nil, commander.WithNamespace("test"))
}

func TestDocumentManager_Create(t *testing.T) {
	dm := newManager(nil)
	for _, want := range []string{"Untitled", "Untitled-2", "Untitled-3"} {
		doc, err := dm.Create()
		if err != nil {
			t.Fatal(err)
		}
		if doc.Name != want || !doc.IsScratch() {
			t.Errorf("Create() = %q scratch=%v, want %q", doc.Name, doc.IsScratch(), want)
		}
		if dm.Active() != doc {
			t.Errorf("Create() did not activate %q", want)
		}
	}
	if dm.Count() != 3 {
		t.Errorf("Count() = %d", dm.Count())
	}
}

func TestDocumentManager_SaveAsOpen(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage()
	dm := newManager(st)

	doc, _ := dm.Create()
	if _, err := doc.Commander.InsertTopLevel("first"); err != nil {
		t.Fatal(err)
	}
	if !doc.IsModified() {
		t.Fatal("expected modified after insert")
	}
	if err := dm.Save(ctx, doc.Name); !errors.Is(err, ErrScratchDocument) {
		t.Fatalf("Save(scratch) = %v, want ErrScratchDocument", err)
	}

	if err := dm.SaveAs(ctx, doc, "notes"); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "notes" || doc.IsScratch() || doc.IsModified() {
		t.Errorf("after SaveAs: name=%q scratch=%v modified=%v", doc.Name, doc.IsScratch(), doc.IsModified())
	}
	if _, ok := dm.Get("Untitled"); ok {
		t.Error("old name still registered")
	}

	// Reopening an open document returns the same instance.
	again, err := dm.Open(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if again != doc {
		t.Error("Open() of an open document returned a new instance")
	}

	if err := dm.Close("notes", false); err != nil {
		t.Fatal(err)
	}
	loaded, err := dm.Open(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Commander.Headline(loaded.Commander.Tree().First()); got != "first" {
		t.Errorf("reopened headline = %q, want first", got)
	}
	if loaded.IsModified() {
		t.Error("freshly opened document is modified")
	}
}

func TestDocumentManager_SaveAsTaken(t *testing.T) {
	ctx := context.Background()
	dm := newManager(newMemStorage())
	a, _ := dm.Create()
	b, _ := dm.Create()
	if err := dm.SaveAs(ctx, a, "a"); err != nil {
		t.Fatal(err)
	}
	if err := dm.SaveAs(ctx, b, "a"); !errors.Is(err, ErrDocumentAlreadyOpen) {
		t.Errorf("SaveAs(taken) = %v, want ErrDocumentAlreadyOpen", err)
	}
}

func TestDocumentManager_OpenErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := newManager(nil).Open(ctx, "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("Open() without storage = %v, want ErrNoStorage", err)
	}

	st := newMemStorage()
	dm := newManager(st)
	_, err := dm.Open(ctx, "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) = %v, want ErrNotExist", err)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "open" || opErr.Target != "missing" {
		t.Errorf("Open(missing) error = %#v", err)
	}

	st.docs["bad"] = persist.Document{Roots: []string{"nowhere"}}
	if _, err := dm.Open(ctx, "bad"); !errors.Is(err, persist.ErrUnknownID) {
		t.Errorf("Open(bad) = %v, want ErrUnknownID", err)
	}
	if dm.Count() != 0 {
		t.Errorf("failed opens left %d documents", dm.Count())
	}
}

func TestDocumentManager_SaveFailureKeepsModified(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage()
	dm := newManager(st)
	doc, _ := dm.Create()
	if err := dm.SaveAs(ctx, doc, "notes"); err != nil {
		t.Fatal(err)
	}
	doc.Commander.InsertTopLevel("x")

	st.fail = errors.New("disk full")
	if err := dm.Save(ctx, "notes"); !errors.Is(err, st.fail) {
		t.Fatalf("Save() = %v", err)
	}
	if !doc.IsModified() {
		t.Error("failed save cleared the modified flag")
	}
}

func TestDocumentManager_CloseUnsaved(t *testing.T) {
	dm := newManager(nil)
	a, _ := dm.Create()
	b, _ := dm.Create()
	b.Commander.InsertTopLevel("x")

	if err := dm.Close(b.Name, false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("Close() = %v, want ErrUnsavedChanges", err)
	}
	if err := dm.Close(b.Name, true); err != nil {
		t.Fatal(err)
	}
	if dm.Active() != a {
		t.Error("closing the active document did not activate the previous one")
	}
	if err := dm.Close("nope", true); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Close(nope) = %v", err)
	}
}

func TestDocumentManager_Cycle(t *testing.T) {
	dm := newManager(nil)
	if dm.Next() != nil {
		t.Error("Next() on empty manager returned a document")
	}
	a, _ := dm.Create()
	b, _ := dm.Create()
	c, _ := dm.Create()

	if got := dm.Next(); got != a {
		t.Errorf("Next() from last = %q, want wrap to %q", got.Name, a.Name)
	}
	if got := dm.Previous(); got != c {
		t.Errorf("Previous() from first = %q, want %q", got.Name, c.Name)
	}
	if err := dm.SetActive(b.Name); err != nil {
		t.Fatal(err)
	}
	if got := dm.Next(); got != c {
		t.Errorf("Next() = %q, want %q", got.Name, c.Name)
	}
	if err := dm.SetActive("nope"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("SetActive(nope) = %v", err)
	}
}

func TestDocumentManager_DirtySaveAll(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage()
	dm := newManager(st)

	named, _ := dm.Create()
	if err := dm.SaveAs(ctx, named, "named"); err != nil {
		t.Fatal(err)
	}
	scratch, _ := dm.Create()
	if dm.HasDirty() {
		t.Fatal("HasDirty() with nothing modified")
	}

	named.Commander.InsertTopLevel("n")
	scratch.Commander.InsertTopLevel("s")
	if got := dm.Dirty(); len(got) != 2 || got[0] != named {
		t.Fatalf("Dirty() = %v", got)
	}

	if err := dm.SaveAll(ctx); err != nil {
		t.Fatal(err)
	}
	if named.IsModified() {
		t.Error("SaveAll() left the named document modified")
	}
	if !scratch.IsModified() {
		t.Error("SaveAll() saved a scratch document")
	}
	if len(st.docs["named"].Records) != 1 {
		t.Errorf("stored records = %d, want 1", len(st.docs["named"].Records))
	}
}

func TestDocumentManager_JSONStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outline.json")
	dm := newManager(JSONStorage{})

	doc, _ := dm.Create()
	res, err := doc.Commander.InsertTopLevel("parent")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Commander.InsertChild(res.Selection, "child"); err != nil {
		t.Fatal(err)
	}
	if err := dm.SaveAs(ctx, doc, path); err != nil {
		t.Fatal(err)
	}

	other := newManager(JSONStorage{})
	loaded, err := other.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !persist.Equal(persist.Snapshot(doc.Commander), persist.Snapshot(loaded.Commander)) {
		t.Error("document changed across a JSON round trip")
	}
}
