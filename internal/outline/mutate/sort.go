package mutate

import (
	"slices"
	"strings"

	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

// Entry is what a comparator sees of one sibling.
type Entry struct {
	Handle   node.Handle
	ID       string
	Headline string
	Body     string
}

// Compare orders two entries like strings.Compare. A comparator that
// returns an error aborts the sort before anything is changed.
type Compare func(a, b Entry) (int, error)

// HeadlineOrder is the default comparator: case-sensitive headline order.
func HeadlineOrder(a, b Entry) (int, error) {
	return strings.Compare(a.Headline, b.Headline), nil
}

type sortItem struct {
	entry Entry
	orig  int
}

// sorted returns the stable sort of list under cmp and the new index of the
// element originally at track (or -1).
func sorted(s *node.Store, list []node.Handle, cmp Compare, track int) ([]node.Handle, int, error) {
	if cmp == nil {
		cmp = HeadlineOrder
	}
	items := make([]sortItem, len(list))
	for i, h := range list {
		items[i] = sortItem{
			entry: Entry{Handle: h, ID: s.ID(h), Headline: s.Headline(h), Body: s.Body(h)},
			orig:  i,
		}
	}

	var cmpErr error
	slices.SortStableFunc(items, func(a, b sortItem) int {
		if cmpErr != nil {
			return 0
		}
		c, err := cmp(a.entry, b.entry)
		if err != nil {
			cmpErr = err
			return 0
		}
		return c
	})
	if cmpErr != nil {
		return nil, -1, cmpErr
	}

	out := make([]node.Handle, len(items))
	newIdx := -1
	for i, it := range items {
		out[i] = it.entry.Handle
		if it.orig == track {
			newIdx = i
		}
	}
	return out, newIdx, nil
}

// SortChildren stably reorders p's children. Clones stay clones: only the
// order of handles changes.
func SortChildren(t *position.Tree, p position.Position, cmp Compare) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	if err := sortUnder(t.Store(), p.Node(), cmp); err != nil {
		return position.Position{}, err
	}
	return p, nil
}

// SortTopLevel stably reorders the top-level nodes.
func SortTopLevel(t *position.Tree, cmp Compare) error {
	return sortUnder(t.Store(), t.Root(), cmp)
}

func sortUnder(s *node.Store, parent node.Handle, cmp Compare) error {
	kids := s.Children(parent)
	out, _, err := sorted(s, kids, cmp, -1)
	if err != nil {
		return err
	}
	if slices.Equal(out, kids) {
		return nil
	}
	return s.SetChildren(parent, out)
}

// SortSiblings stably reorders p and its siblings and returns p's new
// position.
func SortSiblings(t *position.Tree, p position.Position, cmp Compare) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	s := t.Store()
	parent := t.ParentNode(p)
	kids := s.Children(parent)
	out, idx, err := sorted(s, kids, cmp, p.Index())
	if err != nil {
		return position.Position{}, err
	}
	if slices.Equal(out, kids) {
		return p, nil
	}
	if err := s.SetChildren(parent, out); err != nil {
		return position.Position{}, err
	}
	return p.WithIndex(p.Node(), idx), nil
}
