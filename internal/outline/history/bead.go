package history

import (
	"fmt"
	"time"

	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/position"
)

// Kind tags a bead's payload.
type Kind int

const (
	// KindText is an edit of one text field of one node.
	KindText Kind = iota
	// KindMark is a change of mark bits only.
	KindMark
	// KindTree is a structural change, possibly with text and mark edits.
	KindTree
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindMark:
		return "mark"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

// Field selects a node's headline or body.
type Field int

const (
	FieldHeadline Field = iota
	FieldBody
)

// String returns the field name.
func (f Field) String() string {
	if f == FieldHeadline {
		return "headline"
	}
	return "body"
}

// TextChange is the KindText payload.
type TextChange struct {
	Node   node.Handle
	Field  Field
	Before string
	After  string
}

// ChildrenDelta is one parent's children list before and after.
type ChildrenDelta struct {
	Parent node.Handle
	Before []node.Handle
	After  []node.Handle
}

// TextDelta is one node's text before and after.
type TextDelta struct {
	Node   node.Handle
	Before node.Text
	After  node.Text
}

// MarkDelta is one node's mark before and after.
type MarkDelta struct {
	Node   node.Handle
	Before bool
	After  bool
}

// TreeChange is the KindTree payload.
type TreeChange struct {
	Children []ChildrenDelta
	Text     []TextDelta
	Marks    []MarkDelta
}

// MarkChange is the KindMark payload.
type MarkChange struct {
	Marks []MarkDelta
}

// Bead is one reversible unit of history. Exactly one payload pointer is
// set, selected by Kind.
type Bead struct {
	Tag  string
	Kind Kind

	Text *TextChange
	Tree *TreeChange
	Mark *MarkChange

	// SelBefore anchors the command; undo restores it.
	SelBefore position.Position
	// SelAfter is restored by redo.
	SelAfter position.Position

	Time time.Time
}

// Info is a read-only summary of a bead for history displays.
type Info struct {
	Tag  string
	Kind Kind
	// Field is set for KindText beads.
	Field Field
	Time  time.Time
}

func (b *Bead) info() Info {
	info := Info{Tag: b.Tag, Kind: b.Kind, Time: b.Time}
	if b.Kind == KindText {
		info.Field = b.Text.Field
	}
	return info
}

// apply writes the bead's before-data (forward=false) or after-data
// (forward=true) into the store.
func (b *Bead) apply(s *node.Store, forward bool) error {
	switch b.Kind {
	case KindText:
		tc := b.Text
		value := tc.Before
		if forward {
			value = tc.After
		}
		text := s.Text(tc.Node)
		if tc.Field == FieldHeadline {
			text.Headline = value
		} else {
			text.Body = value
		}
		return s.RestoreText(tc.Node, text)

	case KindMark:
		return applyMarks(s, b.Mark.Marks, forward)

	case KindTree:
		tc := b.Tree
		for _, d := range tc.Children {
			list := d.Before
			if forward {
				list = d.After
			}
			if err := s.SetChildren(d.Parent, list); err != nil {
				return fmt.Errorf("restore children of %s: %w", d.Parent, err)
			}
		}
		for _, d := range tc.Text {
			text := d.Before
			if forward {
				text = d.After
			}
			if err := s.RestoreText(d.Node, text); err != nil {
				return fmt.Errorf("restore text of %s: %w", d.Node, err)
			}
		}
		return applyMarks(s, tc.Marks, forward)
	}
	return fmt.Errorf("bead %q: unknown kind %d", b.Tag, b.Kind)
}

func applyMarks(s *node.Store, marks []MarkDelta, forward bool) error {
	for _, d := range marks {
		v := d.Before
		if forward {
			v = d.After
		}
		if err := s.RestoreMarked(d.Node, v); err != nil {
			return fmt.Errorf("restore mark of %s: %w", d.Node, err)
		}
	}
	return nil
}

// fromJournal builds a payload from a closed journal and the store's
// current state. It returns nil when nothing actually changed.
func fromJournal(tag string, s *node.Store, j *node.Journal) *Bead {
	b := &Bead{Tag: tag}

	var children []ChildrenDelta
	for _, h := range j.ChildrenTouched() {
		before, after := j.PriorChildren(h), s.Children(h)
		if handlesEqual(before, after) {
			continue
		}
		children = append(children, ChildrenDelta{Parent: h, Before: before, After: after})
	}
	var texts []TextDelta
	for _, h := range j.TextTouched() {
		before, after := j.PriorText(h), s.Text(h)
		if before == after {
			continue
		}
		texts = append(texts, TextDelta{Node: h, Before: before, After: after})
	}
	var marks []MarkDelta
	for _, h := range j.MarksTouched() {
		before, after := j.PriorMarked(h), s.Flags(h).Has(node.FlagMarked)
		if before == after {
			continue
		}
		marks = append(marks, MarkDelta{Node: h, Before: before, After: after})
	}

	switch {
	case len(children) == 0 && len(texts) == 0 && len(marks) == 0:
		return nil

	case len(children) == 0 && len(marks) == 0 && len(texts) == 1:
		d := texts[0]
		switch {
		case d.Before.Body == d.After.Body:
			b.Kind = KindText
			b.Text = &TextChange{Node: d.Node, Field: FieldHeadline, Before: d.Before.Headline, After: d.After.Headline}
			return b
		case d.Before.Headline == d.After.Headline:
			b.Kind = KindText
			b.Text = &TextChange{Node: d.Node, Field: FieldBody, Before: d.Before.Body, After: d.After.Body}
			return b
		}

	case len(children) == 0 && len(texts) == 0:
		b.Kind = KindMark
		b.Mark = &MarkChange{Marks: marks}
		return b
	}

	b.Kind = KindTree
	b.Tree = &TreeChange{Children: children, Text: texts, Marks: marks}
	return b
}

func handlesEqual(a, b []node.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
