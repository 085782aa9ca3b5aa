package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

// Common errors for history operations.
var (
	ErrRecording     = errors.New("history: command already being recorded")
	ErrNotRecording  = errors.New("history: no command being recorded")
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// DefaultMaxEntries bounds the bead list when no limit is given.
const DefaultMaxEntries = 1000

// State is the recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

// Option configures an Undoer.
type Option func(*Undoer)

// WithMaxEntries bounds the number of beads kept. Zero or negative uses
// DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(u *Undoer) { u.maxEntries = normalizeMax(n) }
}

// WithCoalesceWindow sets how close two coalescing edits must be. Zero
// means any age.
func WithCoalesceWindow(d time.Duration) Option {
	return func(u *Undoer) { u.window = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(u *Undoer) { u.now = now }
}

// RecordOption modifies a single recording.
type RecordOption func(*pending)

// Coalesce asks End to merge a text edit into the previous bead when it
// edits the same field of the same node.
func Coalesce() RecordOption {
	return func(p *pending) { p.coalesce = true }
}

type pending struct {
	tag      string
	sel      position.Position
	coalesce bool
}

// Undoer records beads for one node store.
type Undoer struct {
	store *node.Store

	beads []*Bead
	ptr   int // beads[:ptr] are undoable, beads[ptr:] redoable

	state   State
	current pending

	maxEntries int
	window     time.Duration
	now        func() time.Time
}

// New creates an Undoer for store.
func New(store *node.Store, opts ...Option) *Undoer {
	u := &Undoer{
		store:      store,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func normalizeMax(n int) int {
	if n <= 0 {
		return DefaultMaxEntries
	}
	return n
}

// State returns whether a command is being recorded.
func (u *Undoer) State() State {
	return u.state
}

// Begin starts recording a command. sel is the selection before the
// command runs; undo returns to it.
func (u *Undoer) Begin(tag string, sel position.Position, opts ...RecordOption) error {
	if u.state == StateRecording {
		return fmt.Errorf("%w: %q while recording %q", ErrRecording, tag, u.current.tag)
	}
	u.current = pending{tag: tag, sel: sel}
	for _, opt := range opts {
		opt(&u.current)
	}
	u.state = StateRecording
	u.store.BeginJournal()
	return nil
}

// End finishes the command and records a bead. It returns nil when the
// command changed nothing undoable. sel is the selection after the command.
func (u *Undoer) End(sel position.Position) (*Bead, error) {
	if u.state != StateRecording {
		return nil, ErrNotRecording
	}
	u.state = StateIdle
	j := u.store.EndJournal()

	b := fromJournal(u.current.tag, u.store, j)
	if b == nil {
		return nil, nil
	}
	b.SelBefore = u.current.sel
	b.SelAfter = sel
	b.Time = u.now()

	if u.current.coalesce && u.merge(b) {
		return u.beads[u.ptr-1], nil
	}

	// A new edit discards the redo side.
	for i := u.ptr; i < len(u.beads); i++ {
		u.beads[i] = nil
	}
	u.beads = append(u.beads[:u.ptr], b)
	u.ptr++
	u.trim()
	return b, nil
}

// merge folds b into the tip bead if both are edits of the same field.
func (u *Undoer) merge(b *Bead) bool {
	if b.Kind != KindText || u.ptr == 0 || u.ptr != len(u.beads) {
		return false
	}
	prev := u.beads[u.ptr-1]
	if prev.Kind != KindText || prev.Text.Node != b.Text.Node || prev.Text.Field != b.Text.Field {
		return false
	}
	if u.window > 0 && b.Time.Sub(prev.Time) > u.window {
		return false
	}
	prev.Text.After = b.Text.After
	prev.SelAfter = b.SelAfter
	prev.Time = b.Time
	return true
}

// Cancel abandons the command and rolls the store back to where Begin
// found it.
func (u *Undoer) Cancel() {
	if u.state != StateRecording {
		return
	}
	u.state = StateIdle
	u.store.Rollback(u.store.EndJournal())
}

// Undo reverts the bead before the pointer and returns the selection the
// command started from. With nothing to undo it returns false and no error.
func (u *Undoer) Undo() (position.Position, bool, error) {
	if u.state == StateRecording {
		return position.Position{}, false, ErrRecording
	}
	if u.ptr == 0 {
		return position.Position{}, false, nil
	}
	b := u.beads[u.ptr-1]
	if err := u.replay(b, false); err != nil {
		return position.Position{}, false, fmt.Errorf("undo %q: %w", b.Tag, err)
	}
	u.ptr--
	return b.SelBefore, true, nil
}

// Redo reapplies the bead at the pointer and returns the selection the
// command ended with.
func (u *Undoer) Redo() (position.Position, bool, error) {
	if u.state == StateRecording {
		return position.Position{}, false, ErrRecording
	}
	if u.ptr == len(u.beads) {
		return position.Position{}, false, nil
	}
	b := u.beads[u.ptr]
	if err := u.replay(b, true); err != nil {
		return position.Position{}, false, fmt.Errorf("redo %q: %w", b.Tag, err)
	}
	u.ptr++
	return b.SelAfter, true, nil
}

// replay applies b all or nothing.
func (u *Undoer) replay(b *Bead, forward bool) error {
	u.store.BeginJournal()
	err := b.apply(u.store, forward)
	j := u.store.EndJournal()
	if err != nil {
		u.store.Rollback(j)
	}
	return err
}

// CanUndo reports whether Undo would do anything.
func (u *Undoer) CanUndo() bool {
	return u.state == StateIdle && u.ptr > 0
}

// CanRedo reports whether Redo would do anything.
func (u *Undoer) CanRedo() bool {
	return u.state == StateIdle && u.ptr < len(u.beads)
}

// UndoCount returns the number of undoable beads.
func (u *Undoer) UndoCount() int {
	return u.ptr
}

// RedoCount returns the number of redoable beads.
func (u *Undoer) RedoCount() int {
	return len(u.beads) - u.ptr
}

// Len returns the number of beads on both sides of the pointer.
func (u *Undoer) Len() int {
	return len(u.beads)
}

// Pointer returns the index of the next bead Redo would apply.
func (u *Undoer) Pointer() int {
	return u.ptr
}

// PeekUndo describes the bead Undo would revert.
func (u *Undoer) PeekUndo() (Info, bool) {
	if u.ptr == 0 {
		return Info{}, false
	}
	return u.beads[u.ptr-1].info(), true
}

// PeekRedo describes the bead Redo would reapply.
func (u *Undoer) PeekRedo() (Info, bool) {
	if u.ptr == len(u.beads) {
		return Info{}, false
	}
	return u.beads[u.ptr].info(), true
}

// UndoInfo lists undoable beads, oldest first.
func (u *Undoer) UndoInfo() []Info {
	out := make([]Info, u.ptr)
	for i, b := range u.beads[:u.ptr] {
		out[i] = b.info()
	}
	return out
}

// RedoInfo lists redoable beads, next first.
func (u *Undoer) RedoInfo() []Info {
	out := make([]Info, 0, len(u.beads)-u.ptr)
	for _, b := range u.beads[u.ptr:] {
		out = append(out, b.info())
	}
	return out
}

// Clear drops all beads. A recording in progress is cancelled.
func (u *Undoer) Clear() {
	u.Cancel()
	u.beads = nil
	u.ptr = 0
}

// SetMaxEntries changes the bead limit, dropping the oldest beads if
// needed.
func (u *Undoer) SetMaxEntries(n int) {
	u.maxEntries = normalizeMax(n)
	u.trim()
}

// MaxEntries returns the bead limit.
func (u *Undoer) MaxEntries() int {
	return u.maxEntries
}

func (u *Undoer) trim() {
	if len(u.beads) <= u.maxEntries {
		return
	}
	excess := len(u.beads) - u.maxEntries
	u.beads = append(u.beads[:0:0], u.beads[excess:]...)
	u.ptr -= excess
	if u.ptr < 0 {
		u.ptr = 0
	}
}
