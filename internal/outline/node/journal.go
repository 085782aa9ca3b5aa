package node

import "slices"

// Journal records the state each node had when it was first touched while
// the journal was open. Only undoable state is journaled: children lists,
// headline/body text and the mark bit.
type Journal struct {
	children   map[Handle][]Handle
	childOrder []Handle
	text       map[Handle]Text
	textOrder  []Handle
	marked     map[Handle]bool
	markOrder  []Handle
}

func newJournal() *Journal {
	return &Journal{
		children: make(map[Handle][]Handle),
		text:     make(map[Handle]Text),
		marked:   make(map[Handle]bool),
	}
}

// Empty reports whether nothing was touched.
func (j *Journal) Empty() bool {
	return len(j.childOrder) == 0 && len(j.textOrder) == 0 && len(j.markOrder) == 0
}

// ChildrenTouched returns the parents whose children changed, in first-touch order.
func (j *Journal) ChildrenTouched() []Handle { return j.childOrder }

// TextTouched returns the nodes whose text changed, in first-touch order.
func (j *Journal) TextTouched() []Handle { return j.textOrder }

// MarksTouched returns the nodes whose mark changed, in first-touch order.
func (j *Journal) MarksTouched() []Handle { return j.markOrder }

// PriorChildren returns the children h had before it was first touched.
func (j *Journal) PriorChildren(h Handle) []Handle { return j.children[h] }

// PriorText returns the text h had before it was first touched.
func (j *Journal) PriorText(h Handle) Text { return j.text[h] }

// PriorMarked returns the mark h had before it was first touched.
func (j *Journal) PriorMarked(h Handle) bool { return j.marked[h] }

// BeginJournal starts recording. A journal already in progress is discarded.
func (s *Store) BeginJournal() {
	s.journal = newJournal()
}

// EndJournal stops recording and returns what was captured.
func (s *Store) EndJournal() *Journal {
	j := s.journal
	s.journal = nil
	if j == nil {
		return newJournal()
	}
	return j
}

// Journaling reports whether a journal is open.
func (s *Store) Journaling() bool {
	return s.journal != nil
}

// Rollback restores every node recorded in j to its prior state.
func (s *Store) Rollback(j *Journal) {
	for _, h := range j.childOrder {
		_ = s.SetChildren(h, j.children[h])
	}
	for _, h := range j.textOrder {
		_ = s.RestoreText(h, j.text[h])
	}
	for _, h := range j.markOrder {
		_ = s.RestoreMarked(h, j.marked[h])
	}
}

func (s *Store) noteChildren(h Handle, sl *slot) {
	j := s.journal
	if j == nil {
		return
	}
	if _, ok := j.children[h]; ok {
		return
	}
	j.children[h] = slices.Clone(sl.children)
	j.childOrder = append(j.childOrder, h)
}

func (s *Store) noteText(h Handle, sl *slot) {
	j := s.journal
	if j == nil {
		return
	}
	if _, ok := j.text[h]; ok {
		return
	}
	j.text[h] = sl.text
	j.textOrder = append(j.textOrder, h)
}

func (s *Store) noteMarked(h Handle, sl *slot) {
	j := s.journal
	if j == nil {
		return
	}
	if _, ok := j.marked[h]; ok {
		return
	}
	j.marked[h] = sl.flags.Has(FlagMarked)
	j.markOrder = append(j.markOrder, h)
}
