package history

import "github.com/dshills/outliner/internal/outline/position"

// Transaction records fn as one bead. If fn fails, every change it made is
// rolled back and nothing is recorded. fn returns the selection after the
// command.
func (u *Undoer) Transaction(tag string, sel position.Position, fn func() (position.Position, error), opts ...RecordOption) (*Bead, error) {
	if err := u.Begin(tag, sel, opts...); err != nil {
		return nil, err
	}
	after, err := fn()
	if err != nil {
		u.Cancel()
		return nil, err
	}
	return u.End(after)
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	depth int
}

// Checkpoint marks the current history position.
func (u *Undoer) Checkpoint() Checkpoint {
	return Checkpoint{depth: u.ptr}
}

// UndoToCheckpoint undoes every bead recorded since cp and returns the
// selection of the last bead undone.
func (u *Undoer) UndoToCheckpoint(cp Checkpoint) (position.Position, error) {
	var sel position.Position
	for u.ptr > cp.depth {
		p, ok, err := u.Undo()
		if err != nil {
			return sel, err
		}
		if !ok {
			return sel, ErrNothingToUndo
		}
		sel = p
	}
	return sel, nil
}

// RedoToCheckpoint redoes beads until the history is back at cp. A new
// edit since cp discards the beads it needs; the call then stops with
// ErrNothingToRedo.
func (u *Undoer) RedoToCheckpoint(cp Checkpoint) (position.Position, error) {
	var sel position.Position
	for u.ptr < cp.depth {
		p, ok, err := u.Redo()
		if err != nil {
			return sel, err
		}
		if !ok {
			return sel, ErrNothingToRedo
		}
		sel = p
	}
	return sel, nil
}
