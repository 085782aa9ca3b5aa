// Package commander coordinates editing of one open outline document.
//
// A Commander owns the hidden root, the current selection, the hoist stack,
// a clipboard and the undo history for one node store. Every editing
// operation takes a Position, runs as one recorded command, and returns a
// Result describing the new selection and what the host must redraw.
//
// # Basic Usage
//
//	c, err := commander.New(commander.WithNamespace("alice"))
//	if err != nil {
//		return err
//	}
//
//	res, _ := c.InsertTopLevel("Chapter 1")
//	res, _ = c.InsertChild(res.Selection, "Section 1.1")
//	c.Clone(res.Selection)
//
//	c.Undo()
//	c.Redo()
//
// # Failure
//
// A failed command changes nothing and records nothing. Stale positions
// fail with ErrInvalidPosition; the host should re-fetch and retry.
//
// An identity collision or a failed history replay means the node graph
// can no longer be trusted. The Commander then halts: every later edit
// returns ErrHalted. Reading and saving still work.
//
// # Thread Safety
//
// A Commander is not safe for concurrent use. Hosts serialize calls into a
// given Commander. Separate Commanders may run concurrently, and may share
// one ident.Generator.
//
// # Reclamation
//
// Deleted nodes stay in the store while history can bring them back.
// Compact clears the history and frees everything unreachable.
package commander
