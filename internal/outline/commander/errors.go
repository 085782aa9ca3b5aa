package commander

import (
	"errors"

	"github.com/dshills/outliner/internal/outline/mutate"
)

// Errors returned by commander operations.
var (
	// ErrInvalidPosition indicates a stale or nonexistent position.
	ErrInvalidPosition = mutate.ErrInvalidPosition

	// ErrCycle indicates an edit would make a node its own descendant.
	ErrCycle = mutate.ErrCycle

	// ErrCannotMove indicates a move has no place to go.
	ErrCannotMove = mutate.ErrCannotMove

	// ErrHalted indicates the commander stopped after an invariant violation.
	ErrHalted = errors.New("commander halted")

	// ErrNotHoisted indicates Dehoist with an empty hoist stack.
	ErrNotHoisted = errors.New("not hoisted")

	// ErrClipboardEmpty indicates a paste with nothing copied.
	ErrClipboardEmpty = errors.New("clipboard is empty")

	// ErrStaleMatch indicates a search match no longer matches its text.
	ErrStaleMatch = errors.New("match is stale")
)
