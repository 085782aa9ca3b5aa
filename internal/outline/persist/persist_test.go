package persist

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/ident"
	"github.com/dshills/outliner/internal/outline/node"
)

// buildSample creates A(A1,B) B(B1) with B cloned under A, a marked A1 and
// an attribute on B1.
func buildSample(t *testing.T, opts ...commander.Option) *commander.Commander {
	t.Helper()
	c, err := commander.New(append([]commander.Option{commander.WithNamespace("doc")}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	step := func(res commander.Result, err error) commander.Result {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	a := step(c.InsertTopLevel("A")).Selection
	b := step(c.InsertTopLevel("B")).Selection
	a1 := step(c.InsertChild(a, "A1")).Selection
	b1 := step(c.InsertChild(b, "B1")).Selection
	step(c.SetBody(b1, "body of B1", false))
	step(c.CloneAsLastChild(b, a))
	step(c.SetMarked(a1, true))
	if err := c.Store().SetAttr(b1.Node(), "color", "blue"); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSnapshotOrder(t *testing.T) {
	c := buildSample(t)
	doc := Snapshot(c)

	var heads []string
	for _, r := range doc.Records {
		heads = append(heads, r.Headline)
	}
	// Pre-order of first occurrence: B appears first under A.
	if want := []string{"A", "A1", "B", "B1"}; !slices.Equal(heads, want) {
		t.Errorf("record order = %v, want %v", heads, want)
	}
	if len(doc.Roots) != 2 {
		t.Errorf("roots = %v, want 2", doc.Roots)
	}
	if doc.Records[1].Attributes[AttrMarked] != "true" {
		t.Errorf("A1 attributes = %v, want marked", doc.Records[1].Attributes)
	}
	if doc.Records[3].Attributes["color"] != "blue" {
		t.Errorf("B1 attributes = %v", doc.Records[3].Attributes)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	c := buildSample(t)
	doc := Snapshot(c)

	restored, err := Restore(doc, commander.WithNamespace("restored"))
	if err != nil {
		t.Fatal(err)
	}
	if again := Snapshot(restored); !Equal(doc, again) {
		t.Errorf("round trip changed the document:\n got %+v\nwant %+v", again, doc)
	}
	if restored.Changed() {
		t.Error("restored commander marked changed")
	}
	if restored.CanUndo() {
		t.Error("restored commander has history")
	}

	// Clone identity survives.
	h, ok := restored.Store().Lookup(doc.Records[2].ID)
	if !ok {
		t.Fatal("B not found")
	}
	if !restored.Store().IsCloned(h) {
		t.Error("B not cloned after restore")
	}
	if !restored.Tree().Exists(restored.Selection()) {
		t.Error("restored selection does not exist")
	}
}

func TestRestoreKeepsIDsUnique(t *testing.T) {
	// Both generators see the same second, so the restored ids must be
	// observed for new ids to stay unique.
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	saver, _ := ident.New("doc", ident.WithClock(clock))
	doc := Snapshot(buildSample(t, commander.WithGenerator(saver)))

	gen, _ := ident.New("doc", ident.WithClock(clock))
	c, err := Restore(doc, commander.WithGenerator(gen))
	if err != nil {
		t.Fatal(err)
	}
	// New nodes must not reuse restored ids.
	for i := 0; i < 20; i++ {
		if _, err := c.InsertTopLevel("new"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestValidate(t *testing.T) {
	id := func(n int) string { return ident.Format("v", "20260101000000", n) }

	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{
			name: "valid with clone",
			doc: Document{
				Roots: []string{id(0), id(1)},
				Records: []Record{
					{ID: id(0), Children: []string{id(2)}},
					{ID: id(1), Children: []string{id(2)}},
					{ID: id(2)},
				},
			},
		},
		{
			name: "duplicate",
			doc: Document{
				Roots:   []string{id(0)},
				Records: []Record{{ID: id(0)}, {ID: id(0)}},
			},
			want: node.ErrIdentityCollision,
		},
		{
			name: "unknown root",
			doc:  Document{Roots: []string{id(9)}},
			want: ErrUnknownID,
		},
		{
			name: "unknown child",
			doc: Document{
				Roots:   []string{id(0)},
				Records: []Record{{ID: id(0), Children: []string{id(5)}}},
			},
			want: ErrUnknownID,
		},
		{
			name: "cycle",
			doc: Document{
				Roots: []string{id(0)},
				Records: []Record{
					{ID: id(0), Children: []string{id(1)}},
					{ID: id(1), Children: []string{id(0)}},
				},
			},
			want: ErrCycle,
		},
		{
			name: "orphan record",
			doc: Document{
				Roots:   []string{id(0)},
				Records: []Record{{ID: id(0)}, {ID: id(1), Children: []string{id(2)}}, {ID: id(2)}},
			},
			want: ErrUnreachable,
		},
		{
			name: "self child",
			doc: Document{
				Roots:   []string{id(0)},
				Records: []Record{{ID: id(0), Children: []string{id(0)}}},
			},
			want: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if _, err := Restore(tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("Restore() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRestoreAfterSecondRollover(t *testing.T) {
	// The saving process created its root one second before its first
	// node, so the node holds the bare id of second S. A generator first
	// used in S must not hand that id to the restored root.
	s := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := s.Add(-time.Second)
	saver, _ := ident.New("alice", ident.WithClock(func() time.Time { return now }))
	c, err := commander.New(commander.WithGenerator(saver))
	if err != nil {
		t.Fatal(err)
	}
	now = s
	if _, err := c.InsertTopLevel("A"); err != nil {
		t.Fatal(err)
	}
	doc := Snapshot(c)
	if want := ident.Format("alice", s.Format(ident.StampLayout), 0); doc.Roots[0] != want {
		t.Fatalf("saved id = %q, want %q", doc.Roots[0], want)
	}

	gen, _ := ident.New("alice", ident.WithClock(func() time.Time { return s }))
	restored, err := Restore(doc, commander.WithGenerator(gen))
	if err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	if got := restored.Headline(restored.Tree().First()); got != "A" {
		t.Errorf("restored headline = %q, want A", got)
	}
	if _, err := restored.InsertTopLevel("B"); err != nil {
		t.Errorf("insert after restore: %v", err)
	}
}

func TestRestoreFutureStampedIDs(t *testing.T) {
	// Ids written by a host whose clock ran ahead stay reserved.
	ahead := time.Date(2026, 2, 1, 8, 0, 5, 0, time.UTC)
	saver, _ := ident.New("skew", ident.WithClock(func() time.Time { return ahead }))
	doc := Snapshot(buildSample(t, commander.WithGenerator(saver)))

	now := ahead.Add(-5 * time.Second)
	gen, _ := ident.New("skew", ident.WithClock(func() time.Time { return now }))
	c, err := Restore(doc, commander.WithGenerator(gen))
	if err != nil {
		t.Fatal(err)
	}
	for now.Before(ahead.Add(time.Second)) {
		for i := 0; i < 3; i++ {
			if _, err := c.InsertTopLevel("new"); err != nil {
				t.Fatalf("insert at %v: %v", now, err)
			}
		}
		now = now.Add(time.Second)
	}
}

func TestRestoreMalformedID(t *testing.T) {
	doc := Document{Roots: []string{"bad"}, Records: []Record{{ID: "bad"}}}
	if _, err := Restore(doc); !errors.Is(err, ident.ErrMalformedID) {
		t.Errorf("Restore() = %v, want ErrMalformedID", err)
	}
}

func TestSnapshotIgnoresDetached(t *testing.T) {
	c := buildSample(t)
	if _, err := c.Delete(c.Tree().TopLevel(1)); err != nil {
		t.Fatal(err)
	}
	doc := Snapshot(c)
	// B is still reachable through its clone under A.
	if len(doc.Records) != 4 || len(doc.Roots) != 1 {
		t.Errorf("records=%d roots=%d, want 4, 1", len(doc.Records), len(doc.Roots))
	}

	if _, err := c.Delete(c.Tree().TopLevel(0)); err != nil {
		t.Fatal(err)
	}
	if doc := Snapshot(c); len(doc.Records) != 0 {
		t.Errorf("records = %d after deleting everything", len(doc.Records))
	}
}
