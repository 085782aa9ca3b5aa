// Package search finds text in outline headlines and bodies.
//
// A Finder scans positions in outline order. It only reads; replacement
// goes through the commander so that it is recorded in history.
package search

import (
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/dshills/outliner/internal/outline/position"
)

// Field names the part of a node a match was found in.
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

// Outline is the read surface a Finder scans.
type Outline interface {
	All() iter.Seq[position.Position]
	Headline(p position.Position) string
	Body(p position.Position) string
}

// Match is one occurrence of the pattern. Start and End are byte offsets
// into the field's text.
type Match struct {
	Pos   position.Position
	Field Field
	Start int
	End   int
}

// IsZero reports whether m is the "no match" value.
func (m Match) IsZero() bool {
	return !m.Pos.IsValid()
}

// Finder holds the search settings.
type Finder struct {
	Pattern    string
	IgnoreCase bool
	Headlines  bool
	Bodies     bool
	Wrap       bool
}

// New returns a Finder for pattern that searches headlines and bodies.
func New(pattern string) *Finder {
	return &Finder{Pattern: pattern, Headlines: true, Bodies: true}
}

type slot struct {
	pos   position.Position
	field Field
}

func (f *Finder) slots(o Outline) []slot {
	var out []slot
	for p := range o.All() {
		if f.Headlines {
			out = append(out, slot{p, FieldHeadline})
		}
		if f.Bodies {
			out = append(out, slot{p, FieldBody})
		}
	}
	return out
}

func text(o Outline, s slot) string {
	if s.field == FieldHeadline {
		return o.Headline(s.pos)
	}
	return o.Body(s.pos)
}

// Next returns the first match after from. A zero from starts at the top.
// With Wrap set, the search continues from the top and may return from
// itself when it is the only match.
func (f *Finder) Next(o Outline, from Match) (Match, bool) {
	if f.Pattern == "" {
		return Match{}, false
	}
	slots := f.slots(o)
	start, offset := 0, 0
	if !from.IsZero() {
		for i, s := range slots {
			if s.field == from.Field && position.Equal(s.pos, from.Pos) {
				start, offset = i, from.End
				break
			}
		}
	}

	for i := start; i < len(slots); i++ {
		at := 0
		if i == start {
			at = offset
		}
		if m, ok := f.match(o, slots[i], at); ok {
			return m, true
		}
	}
	if !f.Wrap {
		return Match{}, false
	}
	for i := 0; i <= start && i < len(slots); i++ {
		if m, ok := f.match(o, slots[i], 0); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (f *Finder) match(o Outline, s slot, at int) (Match, bool) {
	start, end, ok := f.Index(text(o, s), at)
	if !ok {
		return Match{}, false
	}
	return Match{Pos: s.pos, Field: s.field, Start: start, End: end}, true
}

// Index finds the pattern in text at or after byte offset at.
func (f *Finder) Index(text string, at int) (start, end int, ok bool) {
	if f.Pattern == "" || at > len(text) {
		return 0, 0, false
	}
	if !f.IgnoreCase {
		i := strings.Index(text[at:], f.Pattern)
		if i < 0 {
			return 0, 0, false
		}
		return at + i, at + i + len(f.Pattern), true
	}

	fold := cases.Fold()
	pattern := fold.String(f.Pattern)
	folded, offsets := foldWithOffsets(fold, text)

	// Translate at into the folded text.
	from := 0
	for from < len(offsets) && offsets[from] < at {
		from++
	}
	// A match must cover whole source runes: "s" inside the fold of "ß"
	// is not a match.
	for from <= len(folded) {
		i := strings.Index(folded[from:], pattern)
		if i < 0 {
			return 0, 0, false
		}
		i += from
		end := i + len(pattern)
		if runeStart(offsets, i) && runeStart(offsets, end) && offsets[i] < offsets[end] {
			return offsets[i], offsets[end], true
		}
		from = i + 1
	}
	return 0, 0, false
}

// runeStart reports whether folded byte i begins the fold of a source rune.
func runeStart(offsets []int, i int) bool {
	return i == 0 || i == len(offsets)-1 || offsets[i-1] != offsets[i]
}

// foldWithOffsets case-folds text rune by rune. offsets[i] is the byte
// offset in text of the rune that produced folded byte i; the extra last
// entry is len(text).
func foldWithOffsets(fold cases.Caser, text string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		folded := text[i : i+size]
		if r != utf8.RuneError {
			folded = fold.String(folded)
		}
		b.WriteString(folded)
		for range len(folded) {
			offsets = append(offsets, i)
		}
		i += size
	}
	offsets = append(offsets, len(text))
	return b.String(), offsets
}

// ReplaceAll returns text with every match replaced by repl, and the number
// of replacements.
func (f *Finder) ReplaceAll(text, repl string) (string, int) {
	var b strings.Builder
	n, last := 0, 0
	for {
		start, end, ok := f.Index(text, last)
		if !ok {
			break
		}
		b.WriteString(text[last:start])
		b.WriteString(repl)
		n++
		last = end
		if end == start {
			break
		}
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}
