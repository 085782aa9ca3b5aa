package node

import "errors"

// Errors returned by store operations.
var (
	// ErrStaleHandle indicates a handle whose slot was reclaimed or never existed.
	ErrStaleHandle = errors.New("stale node handle")

	// ErrDetached indicates a content mutation on a node no location references.
	ErrDetached = errors.New("node is detached")

	// ErrIdentityCollision indicates a second live node with an existing id.
	// Callers must treat it as fatal for the owning document.
	ErrIdentityCollision = errors.New("node identity collision")

	// ErrIndexOutOfRange indicates a child index outside the children list.
	ErrIndexOutOfRange = errors.New("child index out of range")

	// ErrNoGenerator indicates Create was called on a store without an id generator.
	ErrNoGenerator = errors.New("store has no id generator")
)
