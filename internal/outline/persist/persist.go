// Package persist converts between a Commander's node graph and a flat,
// order-preserving list of records.
//
// A Document lists every reachable node once, in pre-order of first
// occurrence, plus the ids of the top-level nodes. Clones are expressed by
// an id appearing in more than one children list. Positions, history and
// the clipboard are never persisted.
package persist

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/node"
)

// Errors returned when restoring a document.
var (
	ErrUnknownID   = errors.New("persist: unknown node id")
	ErrCycle       = errors.New("persist: node is its own descendant")
	ErrUnreachable = errors.New("persist: record not reachable from any root")
)

// Attribute keys reserved for node flags.
const (
	AttrMarked   = "outliner.marked"
	AttrExpanded = "outliner.expanded"
)

// Record is one persisted node.
type Record struct {
	ID         string
	Headline   string
	Body       string
	Children   []string
	Attributes map[string]string
}

// Document is a persisted outline.
type Document struct {
	Roots   []string
	Records []Record
}

// Snapshot captures c's document. Hoisting does not restrict it.
func Snapshot(c *commander.Commander) Document {
	s := c.Store()
	var doc Document
	seen := make(map[node.Handle]bool)

	var visit func(h node.Handle)
	visit = func(h node.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		kids := s.Children(h)
		rec := Record{
			ID:         s.ID(h),
			Headline:   s.Headline(h),
			Body:       s.Body(h),
			Children:   make([]string, len(kids)),
			Attributes: s.Attrs(h),
		}
		for i, k := range kids {
			rec.Children[i] = s.ID(k)
		}
		flags := s.Flags(h)
		if flags.Has(node.FlagMarked) || flags.Has(node.FlagExpanded) {
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			if flags.Has(node.FlagMarked) {
				rec.Attributes[AttrMarked] = "true"
			}
			if flags.Has(node.FlagExpanded) {
				rec.Attributes[AttrExpanded] = "true"
			}
		}
		doc.Records = append(doc.Records, rec)
		for _, k := range kids {
			visit(k)
		}
	}

	for _, h := range s.Children(c.Root()) {
		doc.Roots = append(doc.Roots, s.ID(h))
		visit(h)
	}
	return doc
}

// Restore builds a Commander holding doc. The document is checked for
// duplicate ids, dangling references and cycles before anything is built.
// The restored Commander has empty history and is marked unchanged.
func Restore(doc Document, opts ...commander.Option) (*commander.Commander, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	c, err := commander.New(opts...)
	if err != nil {
		return nil, err
	}
	s := c.Store()

	handles := make(map[string]node.Handle, len(doc.Records))
	for _, r := range doc.Records {
		h, err := s.CreateWithID(r.ID, r.Headline, r.Body)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		handles[r.ID] = h
	}
	for _, id := range doc.Roots {
		if err := s.AppendChild(c.Root(), handles[id]); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Records {
		h := handles[r.ID]
		for _, cid := range r.Children {
			if err := s.AppendChild(h, handles[cid]); err != nil {
				return nil, err
			}
		}
		for k, v := range r.Attributes {
			switch k {
			case AttrMarked:
				err = s.RestoreMarked(h, v == "true")
			case AttrExpanded:
				err = s.SetExpanded(h, v == "true")
			default:
				err = s.SetAttr(h, k, v)
			}
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", r.ID, err)
			}
		}
	}

	if first := c.Tree().First(); first.IsValid() {
		_ = c.Select(first)
	}
	c.SetChanged(false)
	return c, nil
}

// Validate checks doc for duplicate ids, references to missing records,
// cycles and records that no root reaches.
func Validate(doc Document) error {
	records := make(map[string]*Record, len(doc.Records))
	for i := range doc.Records {
		r := &doc.Records[i]
		if _, dup := records[r.ID]; dup {
			return fmt.Errorf("%w: %s", node.ErrIdentityCollision, r.ID)
		}
		records[r.ID] = r
	}
	for _, id := range doc.Roots {
		if _, ok := records[id]; !ok {
			return fmt.Errorf("%w: root %s", ErrUnknownID, id)
		}
	}
	for _, r := range doc.Records {
		for _, cid := range r.Children {
			if _, ok := records[cid]; !ok {
				return fmt.Errorf("%w: %s in children of %s", ErrUnknownID, cid, r.ID)
			}
		}
	}

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(records))
	var path []string
	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case active:
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, id), " > "))
		case done:
			return nil
		}
		state[id] = active
		path = append(path, id)
		for _, cid := range records[id].Children {
			if err := walk(cid); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}
	for _, r := range doc.Records {
		if err := walk(r.ID); err != nil {
			return err
		}
	}

	reached := make(map[string]bool, len(records))
	stack := slices.Clone(doc.Roots)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		stack = append(stack, records[id].Children...)
	}
	for _, r := range doc.Records {
		if !reached[r.ID] {
			return fmt.Errorf("%w: %s", ErrUnreachable, r.ID)
		}
	}
	return nil
}

// Equal reports whether two documents hold the same records in the same
// order.
func Equal(a, b Document) bool {
	if !slices.Equal(a.Roots, b.Roots) || len(a.Records) != len(b.Records) {
		return false
	}
	for i := range a.Records {
		ra, rb := a.Records[i], b.Records[i]
		if ra.ID != rb.ID || ra.Headline != rb.Headline || ra.Body != rb.Body ||
			!slices.Equal(ra.Children, rb.Children) || !maps.Equal(ra.Attributes, rb.Attributes) {
			return false
		}
	}
	return true
}
