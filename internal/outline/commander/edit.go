package commander

import (
	"fmt"

	"github.com/dshills/outliner/internal/outline/mutate"
	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

func (c *Commander) exists(p position.Position) error {
	if !c.tree.Exists(p) {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return nil
}

// insert creates a node and links it. p is checked first so that a stale
// position leaves no orphan behind.
func (c *Commander) insert(tag string, p position.Position, headline string, link func(node.Handle) (position.Position, error)) (Result, error) {
	if p.IsValid() {
		if err := c.exists(p); err != nil {
			return c.stay(), err
		}
	}
	return c.run(tag, p, ChangeTree, func() (position.Position, error) {
		h, err := c.store.Create(headline, "")
		if err != nil {
			return position.Position{}, err
		}
		return link(h)
	})
}

// InsertAfter creates a node as p's next sibling.
func (c *Commander) InsertAfter(p position.Position, headline string) (Result, error) {
	if !p.IsValid() {
		return c.stay(), fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return c.insert("Insert Node", p, headline, func(h node.Handle) (position.Position, error) {
		return mutate.InsertAfter(c.tree, p, h)
	})
}

// InsertBefore creates a node as p's previous sibling.
func (c *Commander) InsertBefore(p position.Position, headline string) (Result, error) {
	if !p.IsValid() {
		return c.stay(), fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return c.insert("Insert Node", p, headline, func(h node.Handle) (position.Position, error) {
		return mutate.InsertBefore(c.tree, p, h)
	})
}

// InsertChild creates a node as p's last child.
func (c *Commander) InsertChild(p position.Position, headline string) (Result, error) {
	if !p.IsValid() {
		return c.stay(), fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return c.insert("Insert Child", p, headline, func(h node.Handle) (position.Position, error) {
		return mutate.InsertAsLastChild(c.tree, p, h)
	})
}

// InsertTopLevel creates a node after the last top-level node.
func (c *Commander) InsertTopLevel(headline string) (Result, error) {
	return c.insert("Insert Node", position.Position{}, headline, func(h node.Handle) (position.Position, error) {
		return mutate.Append(c.tree, h)
	})
}

// Delete unlinks p's node. Other clones of the node are unaffected.
func (c *Commander) Delete(p position.Position) (Result, error) {
	return c.deleteAs("Delete Node", p)
}

func (c *Commander) deleteAs(tag string, p position.Position) (Result, error) {
	return c.run(tag, p, ChangeTree, func() (position.Position, error) {
		return mutate.Delete(c.tree, p)
	})
}

// Clone links p's node again as p's next sibling.
func (c *Commander) Clone(p position.Position) (Result, error) {
	return c.run("Clone Node", p, ChangeTree, func() (position.Position, error) {
		return mutate.Clone(c.tree, p)
	})
}

// CloneAsLastChild links src's node again as dst's last child.
func (c *Commander) CloneAsLastChild(src, dst position.Position) (Result, error) {
	return c.run("Clone Node", src, ChangeTree, func() (position.Position, error) {
		return mutate.CloneAsLastChild(c.tree, src, dst)
	})
}

// MoveUp swaps p with its previous sibling.
func (c *Commander) MoveUp(p position.Position) (Result, error) {
	return c.run("Move Up", p, ChangeTree, func() (position.Position, error) {
		return mutate.MoveUp(c.tree, p)
	})
}

// MoveDown swaps p with its next sibling.
func (c *Commander) MoveDown(p position.Position) (Result, error) {
	return c.run("Move Down", p, ChangeTree, func() (position.Position, error) {
		return mutate.MoveDown(c.tree, p)
	})
}

// MoveLeft makes p its parent's next sibling.
func (c *Commander) MoveLeft(p position.Position) (Result, error) {
	return c.run("Move Left", p, ChangeTree, func() (position.Position, error) {
		return mutate.MoveLeft(c.tree, p)
	})
}

// MoveRight makes p the last child of its previous sibling.
func (c *Commander) MoveRight(p position.Position) (Result, error) {
	return c.run("Move Right", p, ChangeTree, func() (position.Position, error) {
		return mutate.MoveRight(c.tree, p)
	})
}

// Promote makes p's children its following siblings.
func (c *Commander) Promote(p position.Position) (Result, error) {
	var count int
	res, err := c.run("Promote", p, ChangeTree, func() (position.Position, error) {
		var (
			sel position.Position
			err error
		)
		sel, count, err = mutate.Promote(c.tree, p)
		return sel, err
	})
	if err == nil && count > 0 {
		c.promoted = promoteMark{pos: res.Selection, count: count, pointer: c.hist.Pointer()}
	}
	return res, err
}

// Demote makes p's following siblings its last children. Directly after
// Promote at the same position it takes back exactly the promoted nodes;
// otherwise it takes every following sibling.
func (c *Commander) Demote(p position.Position) (Result, error) {
	n := -1
	if m := c.promoted; m.count > 0 && m.pointer == c.hist.Pointer() && position.Equal(m.pos, p) {
		n = m.count
	}
	return c.run("Demote", p, ChangeTree, func() (position.Position, error) {
		return mutate.Demote(c.tree, p, n)
	})
}

// SortChildren stably sorts p's children with cmp, or by headline when cmp
// is nil.
func (c *Commander) SortChildren(p position.Position, cmp mutate.Compare) (Result, error) {
	return c.run("Sort Children", p, ChangeTree, func() (position.Position, error) {
		return mutate.SortChildren(c.tree, p, cmp)
	})
}

// SortSiblings stably sorts p and its siblings.
func (c *Commander) SortSiblings(p position.Position, cmp mutate.Compare) (Result, error) {
	return c.run("Sort Siblings", p, ChangeTree, func() (position.Position, error) {
		return mutate.SortSiblings(c.tree, p, cmp)
	})
}

// SortTopLevel stably sorts the top-level nodes. The selection moves to
// the first top-level node.
func (c *Commander) SortTopLevel(cmp mutate.Compare) (Result, error) {
	return c.run("Sort Top Level", c.sel, ChangeTree, func() (position.Position, error) {
		if err := mutate.SortTopLevel(c.tree, cmp); err != nil {
			return position.Position{}, err
		}
		return c.tree.First(), nil
	})
}
