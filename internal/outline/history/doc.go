// Package history provides undo/redo for outline documents.
//
// The Undoer keeps a linear list of beads and a pointer into it. Each bead
// is one reversible user-level command. Recording a new bead discards any
// beads past the pointer, so redo history is lost on a new edit; there is no
// undo tree.
//
// # Recording
//
// A command is wrapped in Begin/End:
//
//	u.Begin("Insert Node", sel)
//	// ... mutate the store ...
//	u.End(newSel)
//
// While recording, the node store journals the prior state of everything
// it touches. End turns the journal into a bead carrying exactly the data
// needed to invert the command. Cancel rolls the journal back instead.
//
// # Bead payloads
//
// Beads are tagged by Kind, and each kind carries its own payload:
//   - KindText: one field of one node, before and after
//   - KindMark: mark bits of the touched nodes
//   - KindTree: children lists of touched parents, plus any text and mark
//     changes made by the same command
//
// # Coalescing
//
// Runs of typing into one field can be merged into a single bead. The
// recorder never decides this on its own: the caller passes Coalesce() to
// Begin, and the merge happens only when the previous bead is at the tip,
// targets the same node and field, and is within the coalesce window.
//
// # Concurrency
//
// An Undoer is not safe for concurrent use, matching the store it records.
package history
