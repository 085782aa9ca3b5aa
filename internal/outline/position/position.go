// Package position identifies occurrences of content nodes by path.
//
// Nodes have no parent pointers, since a cloned node has several parents.
// A Position therefore names one occurrence by the chain of (node, child
// index) frames leading to it from the hidden root. Positions are values,
// computed on demand and discarded after use. Any change to an ancestor's
// children may invalidate one; Tree.Exists re-validates it against the
// current shape.
package position

import (
	"fmt"
	"strings"

	"github.com/dshills/outliner/internal/outline/node"
)

// Frame is one ancestor on a Position's path: the ancestor node and its
// index within its own parent.
type Frame struct {
	Node  node.Handle
	Index int
}

// Position names one occurrence of a node. The zero Position is "no
// position" and is distinct from every valid position, including one at
// index 0.
type Position struct {
	node  node.Handle
	index int
	stack []Frame // ancestors, top level first; the hidden root is implicit
}

// IsValid reports whether p names a node at all. It does not check that
// the path still matches the tree; use Tree.Exists for that.
func (p Position) IsValid() bool {
	return !p.node.IsZero()
}

// Node returns the referenced node.
func (p Position) Node() node.Handle {
	return p.node
}

// Index returns p's index among its siblings.
func (p Position) Index() int {
	return p.index
}

// Level returns the nesting depth; top-level nodes are at level 0.
func (p Position) Level() int {
	return len(p.stack)
}

// Stack returns a copy of p's ancestor frames.
func (p Position) Stack() []Frame {
	out := make([]Frame, len(p.stack))
	copy(out, p.stack)
	return out
}

// Path returns the child indices from the top level down to p.
func (p Position) Path() []int {
	out := make([]int, 0, len(p.stack)+1)
	for _, f := range p.stack {
		out = append(out, f.Index)
	}
	return append(out, p.index)
}

// String renders the index path, e.g. "pos[0.2.1]".
func (p Position) String() string {
	if !p.IsValid() {
		return "pos(nil)"
	}
	var b strings.Builder
	b.WriteString("pos[")
	for i, idx := range p.Path() {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", idx)
	}
	b.WriteByte(']')
	return b.String()
}

// Equal reports whether a and b name the same node through the same path.
func Equal(a, b Position) bool {
	if a.node != b.node || a.index != b.index || len(a.stack) != len(b.stack) {
		return false
	}
	for i := range a.stack {
		if a.stack[i] != b.stack[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether a is a strict ancestor of b on b's path.
func (p Position) IsAncestorOf(b Position) bool {
	if !p.IsValid() || len(b.stack) <= len(p.stack) {
		return false
	}
	for i, f := range p.stack {
		if b.stack[i] != f {
			return false
		}
	}
	f := b.stack[len(p.stack)]
	return f.Node == p.node && f.Index == p.index
}

// child builds the position of the i'th child of p.
func (p Position) child(h node.Handle, i int) Position {
	stack := make([]Frame, len(p.stack)+1)
	copy(stack, p.stack)
	stack[len(p.stack)] = Frame{Node: p.node, Index: p.index}
	return Position{node: h, index: i, stack: stack}
}

// sibling builds the position of a sibling of p at index i.
func (p Position) sibling(h node.Handle, i int) Position {
	return Position{node: h, index: i, stack: p.stack}
}

// WithIndex returns p moved to another index under the same parent. The
// caller is responsible for h actually being at that index.
func (p Position) WithIndex(h node.Handle, i int) Position {
	return p.sibling(h, i)
}
