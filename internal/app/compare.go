package app

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/dshills/outliner/internal/config"
	"github.com/dshills/outliner/internal/outline/mutate"
	"github.com/dshills/outliner/internal/script"
)

// FoldedHeadlineOrder compares headlines after Unicode case folding, with
// the raw headline as a tie-break so the order stays total.
func FoldedHeadlineOrder(a, b mutate.Entry) (int, error) {
	fold := cases.Fold()
	if c := strings.Compare(fold.String(a.Headline), fold.String(b.Headline)); c != 0 {
		return c, nil
	}
	return strings.Compare(a.Headline, b.Headline), nil
}

// Comparator returns the sort comparator selected by s. A Lua script takes
// precedence over IgnoreCase. The close function releases the script state
// and is never nil.
func Comparator(s config.SortSettings) (mutate.Compare, func(), error) {
	if s.Script == "" {
		if s.IgnoreCase {
			return FoldedHeadlineOrder, func() {}, nil
		}
		return mutate.HeadlineOrder, func() {}, nil
	}

	st := script.New()
	if err := st.DoFile(s.Script); err != nil {
		st.Close()
		return nil, nil, err
	}
	cmp, err := st.Comparator()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return cmp, st.Close, nil
}
