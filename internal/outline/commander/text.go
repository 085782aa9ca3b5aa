package commander

import (
	"github.com/dshills/outliner/internal/outline/history"
	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
	"github.com/dshills/outliner/internal/outline/search"
)

func coalesceOpts(coalesce bool) []history.RecordOption {
	if coalesce {
		return []history.RecordOption{history.Coalesce()}
	}
	return nil
}

// SetHeadline replaces p's headline. Every clone shows the change. With
// coalesce set, consecutive edits of the same headline share one undo
// step.
func (c *Commander) SetHeadline(p position.Position, headline string, coalesce bool) (Result, error) {
	if err := c.exists(p); err != nil {
		return c.stay(), err
	}
	return c.run("Edit Headline", p, ChangeNode, func() (position.Position, error) {
		return p, c.store.SetHeadline(p.Node(), headline)
	}, coalesceOpts(coalesce)...)
}

// SetBody replaces p's body text.
func (c *Commander) SetBody(p position.Position, body string, coalesce bool) (Result, error) {
	if err := c.exists(p); err != nil {
		return c.stay(), err
	}
	return c.run("Typing", p, ChangeBody, func() (position.Position, error) {
		return p, c.store.SetBody(p.Node(), body)
	}, coalesceOpts(coalesce)...)
}

// SetMarked sets or clears p's mark.
func (c *Commander) SetMarked(p position.Position, marked bool) (Result, error) {
	if err := c.exists(p); err != nil {
		return c.stay(), err
	}
	tag := "Mark"
	if !marked {
		tag = "Unmark"
	}
	return c.run(tag, p, ChangeNode, func() (position.Position, error) {
		return p, c.store.SetMarked(p.Node(), marked)
	})
}

// SetExpanded records whether p is shown expanded. It is view state and is
// not recorded in history.
func (c *Commander) SetExpanded(p position.Position, expanded bool) (Result, error) {
	if err := c.exists(p); err != nil {
		return c.stay(), err
	}
	if err := c.store.SetExpanded(p.Node(), expanded); err != nil {
		return c.stay(), err
	}
	return Result{Selection: c.sel, Change: ChangeNode}, nil
}

// FindNext searches forward from the last match, or from the selection's
// headline, and selects the next match.
func (c *Commander) FindNext(f *search.Finder) (search.Match, bool) {
	from := c.match
	if from.IsZero() || !position.Equal(from.Pos, c.sel) {
		from = search.Match{}
		if c.tree.Exists(c.sel) {
			from = search.Match{Pos: c.sel, Field: search.FieldHeadline}
		}
	}
	m, ok := f.Next(c, from)
	if !ok {
		return search.Match{}, false
	}
	c.match = m
	c.sel = m.Pos
	return m, true
}

// Replace replaces the text of match m, which must still be present.
func (c *Commander) Replace(f *search.Finder, m search.Match, repl string) (Result, error) {
	if err := c.exists(m.Pos); err != nil {
		return c.stay(), err
	}
	text := c.tree.Headline(m.Pos)
	if m.Field == search.FieldBody {
		text = c.tree.Body(m.Pos)
	}
	start, end, ok := f.Index(text, m.Start)
	if !ok || start != m.Start || end != m.End {
		return c.stay(), ErrStaleMatch
	}
	text = text[:start] + repl + text[end:]

	change := ChangeNode
	if m.Field == search.FieldBody {
		change = ChangeBody
	}
	res, err := c.run("Replace", m.Pos, change, func() (position.Position, error) {
		if m.Field == search.FieldBody {
			return m.Pos, c.store.SetBody(m.Pos.Node(), text)
		}
		return m.Pos, c.store.SetHeadline(m.Pos.Node(), text)
	})
	if err == nil {
		m.End = start + len(repl)
		c.match = m
	}
	return res, err
}

// ReplaceAll replaces every match in the visible outline as one undo step
// and returns the number of replacements. A cloned node is rewritten once.
func (c *Commander) ReplaceAll(f *search.Finder, repl string) (Result, int, error) {
	total := 0
	res, err := c.run("Replace All", c.sel, ChangeTree, func() (position.Position, error) {
		seen := make(map[node.Handle]bool)
		for p := range c.All() {
			if seen[p.Node()] {
				continue
			}
			seen[p.Node()] = true
			if f.Headlines {
				if text, n := f.ReplaceAll(c.store.Headline(p.Node()), repl); n > 0 {
					if err := c.store.SetHeadline(p.Node(), text); err != nil {
						return position.Position{}, err
					}
					total += n
				}
			}
			if f.Bodies {
				if text, n := f.ReplaceAll(c.store.Body(p.Node()), repl); n > 0 {
					if err := c.store.SetBody(p.Node(), text); err != nil {
						return position.Position{}, err
					}
					total += n
				}
			}
		}
		return c.sel, nil
	})
	if err != nil {
		return res, 0, err
	}
	c.match = search.Match{}
	return res, total, nil
}
