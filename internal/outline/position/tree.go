package position

import (
	"iter"

	"github.com/dshills/outliner/internal/outline/node"
)

// Tree resolves Positions against a store and its hidden root. All methods
// are pure: they never mutate the store.
type Tree struct {
	store *node.Store
	root  node.Handle
}

// NewTree binds a store and a hidden root.
func NewTree(store *node.Store, root node.Handle) *Tree {
	return &Tree{store: store, root: root}
}

// Store returns the underlying node store.
func (t *Tree) Store() *node.Store {
	return t.store
}

// Root returns the hidden root handle.
func (t *Tree) Root() node.Handle {
	return t.root
}

// ParentNode returns the node whose children contain p: the nearest
// ancestor frame, or the hidden root for top-level positions.
func (t *Tree) ParentNode(p Position) node.Handle {
	if len(p.stack) == 0 {
		return t.root
	}
	return p.stack[len(p.stack)-1].Node
}

// Exists reports whether every frame of p still matches the tree: each
// ancestor holds the expected node at the expected index.
func (t *Tree) Exists(p Position) bool {
	if !p.IsValid() {
		return false
	}
	parent := t.root
	for _, f := range p.stack {
		if t.store.Child(parent, f.Index) != f.Node {
			return false
		}
		parent = f.Node
	}
	return t.store.Child(parent, p.index) == p.node
}

// TopLevel returns the i'th top-level position.
func (t *Tree) TopLevel(i int) Position {
	h := t.store.Child(t.root, i)
	if h.IsZero() {
		return Position{}
	}
	return Position{node: h, index: i}
}

// First returns the first top-level position.
func (t *Tree) First() Position {
	return t.TopLevel(0)
}

// LastTopLevel returns the last top-level position.
func (t *Tree) LastTopLevel() Position {
	return t.TopLevel(t.store.NumChildren(t.root) - 1)
}

// NthChild returns p's i'th child.
func (t *Tree) NthChild(p Position, i int) Position {
	if !p.IsValid() {
		return Position{}
	}
	h := t.store.Child(p.node, i)
	if h.IsZero() {
		return Position{}
	}
	return p.child(h, i)
}

// FirstChild returns p's first child.
func (t *Tree) FirstChild(p Position) Position {
	return t.NthChild(p, 0)
}

// LastChild returns p's last child.
func (t *Tree) LastChild(p Position) Position {
	return t.NthChild(p, t.store.NumChildren(p.node)-1)
}

// Next returns p's following sibling.
func (t *Tree) Next(p Position) Position {
	if !p.IsValid() {
		return Position{}
	}
	h := t.store.Child(t.ParentNode(p), p.index+1)
	if h.IsZero() {
		return Position{}
	}
	return p.sibling(h, p.index+1)
}

// Back returns p's preceding sibling.
func (t *Tree) Back(p Position) Position {
	if !p.IsValid() || p.index == 0 {
		return Position{}
	}
	h := t.store.Child(t.ParentNode(p), p.index-1)
	if h.IsZero() {
		return Position{}
	}
	return p.sibling(h, p.index-1)
}

// Parent returns p's parent. Top-level positions have none: the hidden root
// has no Position.
func (t *Tree) Parent(p Position) Position {
	if !p.IsValid() || len(p.stack) == 0 {
		return Position{}
	}
	n := len(p.stack) - 1
	f := p.stack[n]
	return Position{node: f.Node, index: f.Index, stack: p.stack[:n:n]}
}

// ThreadNext returns the position after p in outline (pre-order) order.
func (t *Tree) ThreadNext(p Position) Position {
	if !p.IsValid() {
		return Position{}
	}
	if c := t.FirstChild(p); c.IsValid() {
		return c
	}
	for q := p; q.IsValid(); q = t.Parent(q) {
		if n := t.Next(q); n.IsValid() {
			return n
		}
	}
	return Position{}
}

// ThreadBack returns the position before p in outline order.
func (t *Tree) ThreadBack(p Position) Position {
	if !p.IsValid() {
		return Position{}
	}
	b := t.Back(p)
	if !b.IsValid() {
		return t.Parent(p)
	}
	for {
		c := t.LastChild(b)
		if !c.IsValid() {
			return b
		}
		b = c
	}
}

// Headline returns the headline of p's node.
func (t *Tree) Headline(p Position) string {
	return t.store.Headline(p.node)
}

// Body returns the body of p's node.
func (t *Tree) Body(p Position) string {
	return t.store.Body(p.node)
}

// ID returns the durable id of p's node.
func (t *Tree) ID(p Position) string {
	return t.store.ID(p.node)
}

// HasChildren reports whether p's node has children.
func (t *Tree) HasChildren(p Position) bool {
	return t.store.NumChildren(p.node) > 0
}

// NumChildren returns the number of children of p's node.
func (t *Tree) NumChildren(p Position) int {
	return t.store.NumChildren(p.node)
}

// IsCloned reports whether p's node appears at more than one location.
func (t *Tree) IsCloned(p Position) bool {
	return t.store.IsCloned(p.node)
}

// VisitAll yields scope and all of its descendants in pre-order, children
// left to right by their current index. The sequence is lazy and may be
// ranged over again to restart it.
func (t *Tree) VisitAll(scope Position) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		if !scope.IsValid() {
			return
		}
		t.walk(scope, yield)
	}
}

// All yields every position in the document in outline order.
func (t *Tree) All() iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for i := 0; i < t.store.NumChildren(t.root); i++ {
			if !t.walk(t.TopLevel(i), yield) {
				return
			}
		}
	}
}

// Children yields p's direct children. An invalid p yields the top level.
func (t *Tree) Children(p Position) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		if !p.IsValid() {
			for i := 0; i < t.store.NumChildren(t.root); i++ {
				if !yield(t.TopLevel(i)) {
					return
				}
			}
			return
		}
		for i := 0; i < t.store.NumChildren(p.node); i++ {
			if !yield(t.NthChild(p, i)) {
				return
			}
		}
	}
}

func (t *Tree) walk(p Position, yield func(Position) bool) bool {
	if !yield(p) {
		return false
	}
	for i := 0; i < t.store.NumChildren(p.node); i++ {
		c := p.child(t.store.Child(p.node, i), i)
		if !t.walk(c, yield) {
			return false
		}
	}
	return true
}

// FindByID returns the first occurrence, in outline order, of the node with
// the given id.
func (t *Tree) FindByID(id string) Position {
	h, ok := t.store.Lookup(id)
	if !ok {
		return Position{}
	}
	for p := range t.All() {
		if p.node == h {
			return p
		}
	}
	return Position{}
}

// Occurrences returns every position at which h appears.
func (t *Tree) Occurrences(h node.Handle) []Position {
	var out []Position
	for p := range t.All() {
		if p.node == h {
			out = append(out, p)
		}
	}
	return out
}

// Reachable reports whether h appears anywhere under the hidden root.
func (t *Tree) Reachable(h node.Handle) bool {
	return h != t.root && t.store.Contains(t.root, h)
}
