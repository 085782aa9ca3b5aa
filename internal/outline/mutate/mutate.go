// Package mutate implements structural outline edits as Position-in,
// Position-out functions over a position.Tree.
//
// Every function validates its inputs completely before touching the store,
// so a failure leaves the tree unchanged. Work is proportional to the depth
// of the positions involved or the number of siblings, except cycle checks,
// which must look at the moved subtree because a clone can make a node
// reachable along more than one path.
package mutate

import (
	"fmt"
	"slices"

	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

func check(t *position.Tree, p position.Position) error {
	if !t.Exists(p) {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return nil
}

func checkNode(t *position.Tree, h node.Handle) error {
	if !t.Store().Valid(h) {
		return fmt.Errorf("%w: %s", node.ErrStaleHandle, h)
	}
	if t.Store().IsRoot(h) {
		return fmt.Errorf("%w: cannot link a root", ErrCycle)
	}
	return nil
}

// checkLink verifies that h may become a child of parent.
func checkLink(t *position.Tree, parent, h node.Handle) error {
	if err := checkNode(t, h); err != nil {
		return err
	}
	if parent != t.Root() && t.Store().Contains(h, parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, t.Store().ID(h), t.Store().ID(parent))
	}
	return nil
}

// InsertAsNthChild links h as p's n'th child.
func InsertAsNthChild(t *position.Tree, p position.Position, n int, h node.Handle) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	if err := checkLink(t, p.Node(), h); err != nil {
		return position.Position{}, err
	}
	if err := t.Store().InsertChild(p.Node(), n, h); err != nil {
		return position.Position{}, err
	}
	return t.NthChild(p, n), nil
}

// InsertAsLastChild links h after p's existing children.
func InsertAsLastChild(t *position.Tree, p position.Position, h node.Handle) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	if err := checkLink(t, p.Node(), h); err != nil {
		return position.Position{}, err
	}
	if err := t.Store().AppendChild(p.Node(), h); err != nil {
		return position.Position{}, err
	}
	return t.LastChild(p), nil
}

// InsertAfter links h as p's next sibling.
func InsertAfter(t *position.Tree, p position.Position, h node.Handle) (position.Position, error) {
	return insertSibling(t, p, h, p.Index()+1)
}

// InsertBefore links h as p's previous sibling; p shifts one index right.
func InsertBefore(t *position.Tree, p position.Position, h node.Handle) (position.Position, error) {
	return insertSibling(t, p, h, p.Index())
}

func insertSibling(t *position.Tree, p position.Position, h node.Handle, at int) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	parent := t.ParentNode(p)
	if err := checkLink(t, parent, h); err != nil {
		return position.Position{}, err
	}
	if err := t.Store().InsertChild(parent, at, h); err != nil {
		return position.Position{}, err
	}
	return p.WithIndex(h, at), nil
}

// InsertTopLevel links h as the n'th top-level node.
func InsertTopLevel(t *position.Tree, n int, h node.Handle) (position.Position, error) {
	if err := checkNode(t, h); err != nil {
		return position.Position{}, err
	}
	if err := t.Store().InsertChild(t.Root(), n, h); err != nil {
		return position.Position{}, err
	}
	return t.TopLevel(n), nil
}

// Append links h as the last top-level node in constant time.
func Append(t *position.Tree, h node.Handle) (position.Position, error) {
	if err := checkNode(t, h); err != nil {
		return position.Position{}, err
	}
	if err := t.Store().AppendChild(t.Root(), h); err != nil {
		return position.Position{}, err
	}
	return t.LastTopLevel(), nil
}

// Delete unlinks p's node from its parent. The node itself stays in the
// store; it becomes unreachable once no location references it. The
// returned selection is the next sibling, else the previous sibling, else
// the parent, else the zero Position.
func Delete(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	s := t.Store()
	parent := t.ParentNode(p)
	idx := p.Index()
	count := s.NumChildren(parent)

	if _, err := s.RemoveChild(parent, idx); err != nil {
		return position.Position{}, err
	}

	switch {
	case idx+1 < count:
		return p.WithIndex(s.Child(parent, idx), idx), nil
	case idx > 0:
		return p.WithIndex(s.Child(parent, idx-1), idx-1), nil
	default:
		return t.Parent(p), nil
	}
}

// MoveUp swaps p with its previous sibling.
func MoveUp(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	if p.Index() == 0 {
		return position.Position{}, ErrCannotMove
	}
	return swap(t, p, p.Index()-1)
}

// MoveDown swaps p with its next sibling.
func MoveDown(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	if p.Index()+1 >= t.Store().NumChildren(t.ParentNode(p)) {
		return position.Position{}, ErrCannotMove
	}
	return swap(t, p, p.Index()+1)
}

func swap(t *position.Tree, p position.Position, to int) (position.Position, error) {
	s := t.Store()
	parent := t.ParentNode(p)
	kids := s.Children(parent)
	kids[p.Index()], kids[to] = kids[to], kids[p.Index()]
	if err := s.SetChildren(parent, kids); err != nil {
		return position.Position{}, err
	}
	return p.WithIndex(p.Node(), to), nil
}

// MoveLeft makes p the next sibling of its parent.
func MoveLeft(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	par := t.Parent(p)
	if !par.IsValid() {
		return position.Position{}, ErrCannotMove
	}
	s := t.Store()
	grand := t.ParentNode(par)
	if err := checkLink(t, grand, p.Node()); err != nil {
		return position.Position{}, err
	}
	if _, err := s.RemoveChild(par.Node(), p.Index()); err != nil {
		return position.Position{}, err
	}
	if err := s.InsertChild(grand, par.Index()+1, p.Node()); err != nil {
		return position.Position{}, err
	}
	return par.WithIndex(p.Node(), par.Index()+1), nil
}

// MoveRight makes p the last child of its previous sibling.
func MoveRight(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	back := t.Back(p)
	if !back.IsValid() {
		return position.Position{}, ErrCannotMove
	}
	if err := checkLink(t, back.Node(), p.Node()); err != nil {
		return position.Position{}, err
	}
	s := t.Store()
	if _, err := s.RemoveChild(t.ParentNode(p), p.Index()); err != nil {
		return position.Position{}, err
	}
	if err := s.AppendChild(back.Node(), p.Node()); err != nil {
		return position.Position{}, err
	}
	return t.LastChild(back), nil
}

// Promote moves all of p's children up to become p's following siblings,
// in order. It returns p and the number of children promoted.
func Promote(t *position.Tree, p position.Position) (position.Position, int, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, 0, err
	}
	s := t.Store()
	kids := s.Children(p.Node())
	if len(kids) == 0 {
		return p, 0, nil
	}
	parent := t.ParentNode(p)
	siblings := slices.Insert(s.Children(parent), p.Index()+1, kids...)
	if err := s.SetChildren(p.Node(), nil); err != nil {
		return position.Position{}, 0, err
	}
	if err := s.SetChildren(parent, siblings); err != nil {
		return position.Position{}, 0, err
	}
	return p, len(kids), nil
}

// Demote moves the next n siblings of p under p, after its existing
// children. A negative n moves all following siblings. Demote(p, k) undoes
// a Promote of p that returned k.
func Demote(t *position.Tree, p position.Position, n int) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	s := t.Store()
	parent := t.ParentNode(p)
	siblings := s.Children(parent)
	follow := siblings[p.Index()+1:]
	if n < 0 || n > len(follow) {
		n = len(follow)
	}
	if n == 0 {
		return p, nil
	}
	moved := slices.Clone(follow[:n])
	for _, h := range moved {
		if s.Contains(h, p.Node()) {
			return position.Position{}, fmt.Errorf("%w: %s under %s", ErrCycle, s.ID(h), s.ID(p.Node()))
		}
	}
	kids := append(s.Children(p.Node()), moved...)
	rest := slices.Delete(slices.Clone(siblings), p.Index()+1, p.Index()+1+n)
	if err := s.SetChildren(parent, rest); err != nil {
		return position.Position{}, err
	}
	if err := s.SetChildren(p.Node(), kids); err != nil {
		return position.Position{}, err
	}
	return p, nil
}

// Clone links p's node again as p's next sibling and returns the new
// occurrence. Headline, body and children are shared, not copied.
func Clone(t *position.Tree, p position.Position) (position.Position, error) {
	if err := check(t, p); err != nil {
		return position.Position{}, err
	}
	parent := t.ParentNode(p)
	if err := t.Store().InsertChild(parent, p.Index()+1, p.Node()); err != nil {
		return position.Position{}, err
	}
	return p.WithIndex(p.Node(), p.Index()+1), nil
}

// CloneAsLastChild links src's node again as dst's last child.
func CloneAsLastChild(t *position.Tree, src, dst position.Position) (position.Position, error) {
	if err := check(t, src); err != nil {
		return position.Position{}, err
	}
	return InsertAsLastChild(t, dst, src.Node())
}
