package mutate

import "errors"

// Errors returned by structural operations. None of them leave a partial
// mutation behind.
var (
	// ErrInvalidPosition indicates a zero or stale Position.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrCycle indicates the operation would place a node inside itself.
	ErrCycle = errors.New("operation would create a cycle")

	// ErrCannotMove indicates a move with no destination, such as moving
	// the first sibling up or a top-level node left.
	ErrCannotMove = errors.New("cannot move node in that direction")
)
