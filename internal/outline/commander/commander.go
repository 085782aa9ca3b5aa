package commander

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dshills/outliner/internal/outline/history"
	"github.com/dshills/outliner/internal/outline/ident"
	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
	"github.com/dshills/outliner/internal/outline/search"
)

// Change tells the host what to redraw after a command.
type Change int

const (
	// ChangeNone means nothing changed.
	ChangeNone Change = iota
	// ChangeNode means one node's headline or flags changed.
	ChangeNode
	// ChangeTree means the outline structure changed.
	ChangeTree
	// ChangeBody means one node's body text changed.
	ChangeBody
)

// String returns the change name.
func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangeNode:
		return "node"
	case ChangeTree:
		return "tree"
	case ChangeBody:
		return "body"
	default:
		return "unknown"
	}
}

// Result is returned by every command.
type Result struct {
	Selection position.Position
	Change    Change
}

// promoteMark remembers the last Promote so that an immediate Demote at
// the same position restores exactly the promoted children.
type promoteMark struct {
	pos     position.Position
	count   int
	pointer int
}

type clipboard struct {
	copy   node.Handle // detached snapshot taken at copy time
	source node.Handle // the node that was copied
}

// Commander coordinates editing of one outline document.
type Commander struct {
	gen   *ident.Generator
	store *node.Store
	root  node.Handle
	tree  *position.Tree
	hist  *history.Undoer

	sel      position.Position
	hoists   []position.Position
	clip     clipboard
	match    search.Match
	promoted promoteMark
	changed  bool
	halted   error

	// Configuration
	namespace string
	maxUndo   int
	window    time.Duration
	log       Logger
}

// New creates a Commander with an empty document.
func New(opts ...Option) (*Commander, error) {
	c := &Commander{
		maxUndo: DefaultMaxUndo,
		window:  DefaultCoalesceWindow,
		log:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.gen == nil {
		ns := c.namespace
		if ns == "" {
			ns = ident.DefaultNamespace()
		}
		gen, err := ident.New(ns)
		if err != nil {
			return nil, err
		}
		c.gen = gen
	}

	c.store = node.NewStore(c.gen)
	root, err := c.store.NewRoot()
	if err != nil {
		return nil, err
	}
	c.root = root
	c.tree = position.NewTree(c.store, root)
	c.hist = history.New(c.store,
		history.WithMaxEntries(c.maxUndo),
		history.WithCoalesceWindow(c.window),
	)
	return c, nil
}

// Store returns the node store. Changes made directly on it bypass
// history.
func (c *Commander) Store() *node.Store {
	return c.store
}

// Tree returns the position resolver for this document.
func (c *Commander) Tree() *position.Tree {
	return c.tree
}

// Root returns the hidden root handle.
func (c *Commander) Root() node.Handle {
	return c.root
}

// History returns the undo history.
func (c *Commander) History() *history.Undoer {
	return c.hist
}

// Generator returns the identity generator.
func (c *Commander) Generator() *ident.Generator {
	return c.gen
}

// Namespace returns the identity namespace of new nodes.
func (c *Commander) Namespace() string {
	return c.gen.Namespace()
}

// Selection returns the current selection.
func (c *Commander) Selection() position.Position {
	return c.sel
}

// Select makes p the current selection.
func (c *Commander) Select(p position.Position) error {
	if !c.tree.Exists(p) {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	c.sel = p
	return nil
}

// Changed reports whether the document changed since it was last marked
// saved.
func (c *Commander) Changed() bool {
	return c.changed
}

// SetChanged sets the changed flag. Clearing it also clears the per-node
// dirty bits.
func (c *Commander) SetChanged(changed bool) {
	c.changed = changed
	if !changed {
		c.store.ClearDirty()
	}
}

// Halted returns the invariant violation that halted the commander, or nil.
func (c *Commander) Halted() error {
	return c.halted
}

func (c *Commander) halt(err error) {
	if c.halted == nil {
		c.halted = err
		c.log.Error("commander halted: %v", err)
	}
}

func (c *Commander) live() error {
	if c.halted != nil {
		return fmt.Errorf("%w: %v", ErrHalted, c.halted)
	}
	return nil
}

// stay is the result of a command that did nothing.
func (c *Commander) stay() Result {
	return Result{Selection: c.sel, Change: ChangeNone}
}

// run executes fn as one recorded command anchored at p.
func (c *Commander) run(tag string, p position.Position, change Change, fn func() (position.Position, error), opts ...history.RecordOption) (Result, error) {
	if err := c.live(); err != nil {
		return c.stay(), err
	}
	c.promoted = promoteMark{}

	var after position.Position
	b, err := c.hist.Transaction(tag, p, func() (position.Position, error) {
		var err error
		after, err = fn()
		return after, err
	}, opts...)
	if err != nil {
		if errors.Is(err, node.ErrIdentityCollision) {
			c.halt(err)
		}
		c.log.Debug("%s at %s failed: %v", tag, p, err)
		return c.stay(), err
	}

	if after.IsValid() {
		c.sel = after
	}
	if b == nil {
		return Result{Selection: c.sel, Change: ChangeNone}, nil
	}
	c.changed = true
	c.log.Debug("%s at %s", tag, p)
	return Result{Selection: c.sel, Change: change}, nil
}

func changeOf(info history.Info) Change {
	switch info.Kind {
	case history.KindText:
		if info.Field == history.FieldBody {
			return ChangeBody
		}
		return ChangeNode
	case history.KindMark:
		return ChangeNode
	default:
		return ChangeTree
	}
}

// CanUndo reports whether Undo would do anything.
func (c *Commander) CanUndo() bool {
	return c.halted == nil && c.hist.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (c *Commander) CanRedo() bool {
	return c.halted == nil && c.hist.CanRedo()
}

// Undo reverts the most recent command. With nothing to undo it is a
// no-op.
func (c *Commander) Undo() (Result, error) {
	info, ok := c.hist.PeekUndo()
	if !ok {
		return c.stay(), c.live()
	}
	return c.replay("undo", info, c.hist.Undo)
}

// Redo reapplies the most recently undone command. With nothing to redo it
// is a no-op.
func (c *Commander) Redo() (Result, error) {
	info, ok := c.hist.PeekRedo()
	if !ok {
		return c.stay(), c.live()
	}
	return c.replay("redo", info, c.hist.Redo)
}

func (c *Commander) replay(verb string, info history.Info, step func() (position.Position, bool, error)) (Result, error) {
	if err := c.live(); err != nil {
		return c.stay(), err
	}
	sel, ok, err := step()
	if err != nil {
		c.halt(err)
		return c.stay(), err
	}
	if !ok {
		return c.stay(), nil
	}
	c.changed = true
	if c.tree.Exists(sel) {
		c.sel = sel
	} else if !c.tree.Exists(c.sel) {
		c.sel = c.tree.First()
	}
	c.log.Debug("%s %s", verb, info.Tag)
	return Result{Selection: c.sel, Change: changeOf(info)}, nil
}

// Hoist restricts iteration to p's subtree. Hoists nest.
func (c *Commander) Hoist(p position.Position) (Result, error) {
	if !c.tree.Exists(p) {
		return c.stay(), fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	c.hoists = append(c.hoists, p)
	c.sel = p
	return Result{Selection: p, Change: ChangeTree}, nil
}

// Dehoist removes the most recent hoist.
func (c *Commander) Dehoist() (Result, error) {
	if len(c.hoists) == 0 {
		return c.stay(), ErrNotHoisted
	}
	top := c.hoists[len(c.hoists)-1]
	c.hoists = c.hoists[:len(c.hoists)-1]
	if c.tree.Exists(top) {
		c.sel = top
	}
	return Result{Selection: c.sel, Change: ChangeTree}, nil
}

// Hoisted returns the innermost hoisted position.
func (c *Commander) Hoisted() (position.Position, bool) {
	if len(c.hoists) == 0 {
		return position.Position{}, false
	}
	return c.hoists[len(c.hoists)-1], true
}

// All yields every visible position in outline order. While hoisted, only
// the hoisted subtree is visible. A hoist invalidated by later edits is
// ignored.
func (c *Commander) All() iter.Seq[position.Position] {
	if top, ok := c.Hoisted(); ok && c.tree.Exists(top) {
		return c.tree.VisitAll(top)
	}
	return c.tree.All()
}

// Subtree yields p and its descendants.
func (c *Commander) Subtree(p position.Position) iter.Seq[position.Position] {
	return c.tree.VisitAll(p)
}

// Headline returns the headline at p.
func (c *Commander) Headline(p position.Position) string {
	return c.tree.Headline(p)
}

// Body returns the body at p.
func (c *Commander) Body(p position.Position) string {
	return c.tree.Body(p)
}

// Compact clears the undo history and frees every node that is no longer
// reachable from the document or the clipboard. It returns the number of
// nodes freed.
func (c *Commander) Compact() int {
	c.hist.Clear()
	c.promoted = promoteMark{}
	freed := c.store.Sweep(c.root, c.clip.copy, c.clip.source)
	c.log.Debug("compact freed %d nodes", freed)
	return freed
}
