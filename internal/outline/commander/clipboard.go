package commander

import (
	"github.com/dshills/outliner/internal/outline/mutate"
	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

// Copy puts a snapshot of p's subtree on the clipboard. It is not an edit
// and is not recorded.
func (c *Commander) Copy(p position.Position) error {
	if err := c.exists(p); err != nil {
		return err
	}
	cp, err := c.store.CopyTree(p.Node())
	if err != nil {
		return err
	}
	c.clip = clipboard{copy: cp, source: p.Node()}
	return nil
}

// Cut copies p's subtree to the clipboard and deletes p.
func (c *Commander) Cut(p position.Position) (Result, error) {
	if err := c.live(); err != nil {
		return c.stay(), err
	}
	prev := c.clip
	if err := c.Copy(p); err != nil {
		return c.stay(), err
	}
	res, err := c.deleteAs("Cut Node", p)
	if err != nil {
		c.clip = prev
	}
	return res, err
}

// Paste inserts a fresh copy of the clipboard after p, or as the last
// top-level node when p is the zero Position. The pasted nodes get new ids.
func (c *Commander) Paste(p position.Position) (Result, error) {
	if !c.store.Valid(c.clip.copy) {
		return c.stay(), ErrClipboardEmpty
	}
	return c.paste("Paste Node", p, func() (node.Handle, error) {
		return c.store.CopyTree(c.clip.copy)
	})
}

// PasteRetainingClones links the copied node itself after p, making the
// pasted tree a clone of the original.
func (c *Commander) PasteRetainingClones(p position.Position) (Result, error) {
	if !c.store.Valid(c.clip.source) {
		return c.stay(), ErrClipboardEmpty
	}
	return c.paste("Paste Retaining Clones", p, func() (node.Handle, error) {
		return c.clip.source, nil
	})
}

func (c *Commander) paste(tag string, p position.Position, get func() (node.Handle, error)) (Result, error) {
	if p.IsValid() {
		if err := c.exists(p); err != nil {
			return c.stay(), err
		}
	}
	return c.run(tag, p, ChangeTree, func() (position.Position, error) {
		h, err := get()
		if err != nil {
			return position.Position{}, err
		}
		if !p.IsValid() {
			return mutate.Append(c.tree, h)
		}
		return mutate.InsertAfter(c.tree, p, h)
	})
}
