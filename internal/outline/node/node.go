// Package node holds outline content nodes in an arena.
//
// Nodes are addressed by generational Handles rather than pointers. A node
// carries no back-pointer to its parents; instead it counts how many child
// slots reference it. A count above one means the node is cloned: every
// location observes the same headline, body and children because they all
// refer to the same slot.
//
// The store performs no locking. All calls for one document must come from
// a single goroutine.
package node

import "fmt"

// Handle addresses a node slot. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// String renders the handle for logs and test failures.
func (h Handle) String() string {
	if h.IsZero() {
		return "node(nil)"
	}
	return fmt.Sprintf("node(%d#%d)", h.index, h.gen)
}

// Flags are per-node state bits.
type Flags uint8

const (
	// FlagDirty marks a node whose text changed since the last save.
	FlagDirty Flags = 1 << iota
	// FlagMarked is the user-visible mark. Changes to it are undoable.
	FlagMarked
	// FlagExpanded records whether a view shows the node's children.
	FlagExpanded
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Text is a node's headline and body.
type Text struct {
	Headline string
	Body     string
}

// slot is one arena cell.
type slot struct {
	gen      uint32
	live     bool
	root     bool
	id       string
	text     Text
	children []Handle
	parents  int
	flags    Flags
	attrs    map[string]string
}
