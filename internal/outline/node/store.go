package node

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dshills/outliner/internal/outline/ident"
)

// Store is the node arena of one document.
type Store struct {
	slots   []slot // slot 0 is never used
	free    []uint32
	ids     map[string]Handle
	gen     *ident.Generator
	journal *Journal
	live    int
}

// NewStore creates an empty store that draws ids from gen.
func NewStore(gen *ident.Generator) *Store {
	return &Store{
		slots: make([]slot, 1),
		ids:   make(map[string]Handle),
		gen:   gen,
	}
}

// Generator returns the store's id generator.
func (s *Store) Generator() *ident.Generator {
	return s.gen
}

// Len returns the number of live nodes, roots included.
func (s *Store) Len() int {
	return s.live
}

// Valid reports whether h addresses a live node.
func (s *Store) Valid(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[h.index]
	return sl.live && sl.gen == h.gen
}

func (s *Store) get(h Handle) (*slot, error) {
	if !s.Valid(h) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return &s.slots[h.index], nil
}

func (s *Store) alloc(id string, text Text) (Handle, error) {
	if _, exists := s.ids[id]; exists {
		return Handle{}, fmt.Errorf("%w: %s", ErrIdentityCollision, id)
	}
	h := s.place(id, text)
	s.ids[id] = h
	return h, nil
}

// place fills a free slot without indexing its id.
func (s *Store) place(id string, text Text) Handle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, slot{})
		idx = uint32(len(s.slots) - 1)
	}

	sl := &s.slots[idx]
	gen := sl.gen + 1
	*sl = slot{
		gen:  gen,
		live: true,
		id:   id,
		text: text,
	}
	s.live++
	return Handle{index: idx, gen: gen}
}

// Create allocates a node with a fresh id and a parent-count of zero.
func (s *Store) Create(headline, body string) (Handle, error) {
	if s.gen == nil {
		return Handle{}, ErrNoGenerator
	}
	return s.alloc(s.gen.Next(), Text{Headline: headline, Body: body})
}

// CreateWithID allocates a node with an id read from storage.
func (s *Store) CreateWithID(id, headline, body string) (Handle, error) {
	if _, _, _, err := ident.Parse(id); err != nil {
		return Handle{}, err
	}
	h, err := s.alloc(id, Text{Headline: headline, Body: body})
	if err != nil {
		return Handle{}, err
	}
	if s.gen != nil {
		s.gen.Observe(id)
	}
	return h, nil
}

// RootSuffix ends the reserved id of a hidden root. It never parses as a
// node id, so roots cannot collide with stored nodes.
const RootSuffix = ".root"

// NewRoot allocates a hidden root. Roots are never detached, draw no id
// from the generator and cannot be found by Lookup.
func (s *Store) NewRoot() (Handle, error) {
	if s.gen == nil {
		return Handle{}, ErrNoGenerator
	}
	h := s.place(s.gen.Namespace()+RootSuffix, Text{})
	s.slots[h.index].root = true
	return h, nil
}

// Lookup finds the live node with the given id.
func (s *Store) Lookup(id string) (Handle, bool) {
	h, ok := s.ids[id]
	return h, ok
}

// ID returns the node's durable id, or "" for a stale handle.
func (s *Store) ID(h Handle) string {
	if sl, err := s.get(h); err == nil {
		return sl.id
	}
	return ""
}

// Headline returns the node's headline.
func (s *Store) Headline(h Handle) string {
	if sl, err := s.get(h); err == nil {
		return sl.text.Headline
	}
	return ""
}

// Body returns the node's body text.
func (s *Store) Body(h Handle) string {
	if sl, err := s.get(h); err == nil {
		return sl.text.Body
	}
	return ""
}

// Text returns headline and body together.
func (s *Store) Text(h Handle) Text {
	if sl, err := s.get(h); err == nil {
		return sl.text
	}
	return Text{}
}

// ParentCount returns how many child slots reference the node.
func (s *Store) ParentCount(h Handle) int {
	if sl, err := s.get(h); err == nil {
		return sl.parents
	}
	return 0
}

// IsCloned reports whether more than one location references the node.
func (s *Store) IsCloned(h Handle) bool {
	return s.ParentCount(h) > 1
}

// IsRoot reports whether h is a hidden root.
func (s *Store) IsRoot(h Handle) bool {
	if sl, err := s.get(h); err == nil {
		return sl.root
	}
	return false
}

// Flags returns the node's flag bits.
func (s *Store) Flags(h Handle) Flags {
	if sl, err := s.get(h); err == nil {
		return sl.flags
	}
	return 0
}

// Children returns a copy of the node's children.
func (s *Store) Children(h Handle) []Handle {
	if sl, err := s.get(h); err == nil {
		return slices.Clone(sl.children)
	}
	return nil
}

// NumChildren returns the number of children.
func (s *Store) NumChildren(h Handle) int {
	if sl, err := s.get(h); err == nil {
		return len(sl.children)
	}
	return 0
}

// Child returns the i'th child, or the zero Handle.
func (s *Store) Child(h Handle, i int) Handle {
	sl, err := s.get(h)
	if err != nil || i < 0 || i >= len(sl.children) {
		return Handle{}
	}
	return sl.children[i]
}

// editable returns the slot for a content mutation.
func (s *Store) editable(h Handle) (*slot, error) {
	sl, err := s.get(h)
	if err != nil {
		return nil, err
	}
	if sl.parents == 0 && !sl.root {
		return nil, fmt.Errorf("%w: %s", ErrDetached, sl.id)
	}
	return sl, nil
}

// SetHeadline replaces the headline in place.
func (s *Store) SetHeadline(h Handle, headline string) error {
	sl, err := s.editable(h)
	if err != nil {
		return err
	}
	if sl.text.Headline == headline {
		return nil
	}
	s.noteText(h, sl)
	sl.text.Headline = headline
	sl.flags |= FlagDirty
	return nil
}

// SetBody replaces the body text in place.
func (s *Store) SetBody(h Handle, body string) error {
	sl, err := s.editable(h)
	if err != nil {
		return err
	}
	if sl.text.Body == body {
		return nil
	}
	s.noteText(h, sl)
	sl.text.Body = body
	sl.flags |= FlagDirty
	return nil
}

// SetMarked sets or clears the mark.
func (s *Store) SetMarked(h Handle, marked bool) error {
	sl, err := s.editable(h)
	if err != nil {
		return err
	}
	if sl.flags.Has(FlagMarked) == marked {
		return nil
	}
	s.noteMarked(h, sl)
	if marked {
		sl.flags |= FlagMarked
	} else {
		sl.flags &^= FlagMarked
	}
	return nil
}

// SetExpanded records view expansion. It is not journaled.
func (s *Store) SetExpanded(h Handle, expanded bool) error {
	sl, err := s.get(h)
	if err != nil {
		return err
	}
	if expanded {
		sl.flags |= FlagExpanded
	} else {
		sl.flags &^= FlagExpanded
	}
	return nil
}

// ClearDirty clears the dirty bit on every live node.
func (s *Store) ClearDirty() {
	for i := range s.slots {
		s.slots[i].flags &^= FlagDirty
	}
}

// Attr returns one attribute value.
func (s *Store) Attr(h Handle, key string) (string, bool) {
	sl, err := s.get(h)
	if err != nil {
		return "", false
	}
	v, ok := sl.attrs[key]
	return v, ok
}

// Attrs returns a copy of the attribute bag.
func (s *Store) Attrs(h Handle) map[string]string {
	if sl, err := s.get(h); err == nil && len(sl.attrs) > 0 {
		return maps.Clone(sl.attrs)
	}
	return nil
}

// SetAttr stores an opaque attribute. An empty value deletes the key.
func (s *Store) SetAttr(h Handle, key, value string) error {
	sl, err := s.get(h)
	if err != nil {
		return err
	}
	if value == "" {
		delete(sl.attrs, key)
		return nil
	}
	if sl.attrs == nil {
		sl.attrs = make(map[string]string)
	}
	sl.attrs[key] = value
	return nil
}

// InsertChild links child into parent's children at index i and increments
// the child's parent-count.
func (s *Store) InsertChild(parent Handle, i int, child Handle) error {
	psl, err := s.get(parent)
	if err != nil {
		return err
	}
	csl, err := s.get(child)
	if err != nil {
		return err
	}
	if i < 0 || i > len(psl.children) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(psl.children))
	}
	s.noteChildren(parent, psl)
	psl.children = slices.Insert(psl.children, i, child)
	csl.parents++
	return nil
}

// AppendChild links child as parent's last child in constant time.
func (s *Store) AppendChild(parent, child Handle) error {
	psl, err := s.get(parent)
	if err != nil {
		return err
	}
	csl, err := s.get(child)
	if err != nil {
		return err
	}
	s.noteChildren(parent, psl)
	psl.children = append(psl.children, child)
	csl.parents++
	return nil
}

// RemoveChild unlinks the i'th child and decrements its parent-count.
func (s *Store) RemoveChild(parent Handle, i int) (Handle, error) {
	psl, err := s.get(parent)
	if err != nil {
		return Handle{}, err
	}
	if i < 0 || i >= len(psl.children) {
		return Handle{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(psl.children))
	}
	child := psl.children[i]
	s.noteChildren(parent, psl)
	psl.children = slices.Delete(psl.children, i, i+1)
	if csl, err := s.get(child); err == nil {
		csl.parents--
	}
	return child, nil
}

// SetChildren replaces parent's children wholesale, adjusting parent-counts of
// both the removed and the added children.
func (s *Store) SetChildren(parent Handle, children []Handle) error {
	psl, err := s.get(parent)
	if err != nil {
		return err
	}
	for _, c := range children {
		if !s.Valid(c) {
			return fmt.Errorf("%w: %s", ErrStaleHandle, c)
		}
	}
	s.noteChildren(parent, psl)
	for _, c := range psl.children {
		if csl, err := s.get(c); err == nil {
			csl.parents--
		}
	}
	psl.children = slices.Clone(children)
	for _, c := range children {
		s.slots[c.index].parents++
	}
	return nil
}

// RestoreText replaces headline and body without the detached check. Used
// when replaying history.
func (s *Store) RestoreText(h Handle, text Text) error {
	sl, err := s.get(h)
	if err != nil {
		return err
	}
	if sl.text == text {
		return nil
	}
	s.noteText(h, sl)
	sl.text = text
	sl.flags |= FlagDirty
	return nil
}

// RestoreMarked sets the mark without the detached check.
func (s *Store) RestoreMarked(h Handle, marked bool) error {
	sl, err := s.get(h)
	if err != nil {
		return err
	}
	s.noteMarked(h, sl)
	if marked {
		sl.flags |= FlagMarked
	} else {
		sl.flags &^= FlagMarked
	}
	return nil
}

// Contains reports whether b is a or lies anywhere below a.
func (s *Store) Contains(a, b Handle) bool {
	if a == b {
		return true
	}
	seen := make(map[Handle]bool)
	stack := []Handle{a}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] {
			continue
		}
		seen[h] = true
		sl, err := s.get(h)
		if err != nil {
			continue
		}
		for _, c := range sl.children {
			if c == b {
				return true
			}
			stack = append(stack, c)
		}
	}
	return false
}

// CopyTree creates a deep copy of h's subtree with fresh ids. Clone
// relationships inside the subtree are preserved in the copy. The returned
// top node has a parent-count of zero.
func (s *Store) CopyTree(h Handle) (Handle, error) {
	if _, err := s.get(h); err != nil {
		return Handle{}, err
	}
	copies := make(map[Handle]Handle)
	var dup func(src Handle) (Handle, error)
	dup = func(src Handle) (Handle, error) {
		if c, ok := copies[src]; ok {
			return c, nil
		}
		sl := s.slots[src.index]
		c, err := s.Create(sl.text.Headline, sl.text.Body)
		if err != nil {
			return Handle{}, err
		}
		copies[src] = c
		csl := &s.slots[c.index]
		csl.flags = sl.flags &^ FlagDirty
		csl.attrs = maps.Clone(sl.attrs)
		for _, child := range sl.children {
			cc, err := dup(child)
			if err != nil {
				return Handle{}, err
			}
			s.slots[c.index].children = append(s.slots[c.index].children, cc)
			s.slots[cc.index].parents++
		}
		return c, nil
	}
	return dup(h)
}

// Sweep frees every live node not reachable from roots and returns how many
// slots were reclaimed. Freed handles become stale.
func (s *Store) Sweep(roots ...Handle) int {
	reach := make(map[Handle]bool)
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reach[h] || !s.Valid(h) {
			continue
		}
		reach[h] = true
		stack = append(stack, s.slots[h.index].children...)
	}

	freed := 0
	for i := 1; i < len(s.slots); i++ {
		sl := &s.slots[i]
		h := Handle{index: uint32(i), gen: sl.gen}
		if !sl.live || reach[h] {
			continue
		}
		for _, c := range sl.children {
			if reach[c] {
				s.slots[c.index].parents--
			}
		}
		if s.ids[sl.id] == h {
			delete(s.ids, sl.id)
		}
		*sl = slot{gen: sl.gen}
		s.free = append(s.free, uint32(i))
		s.live--
		freed++
	}
	return freed
}
