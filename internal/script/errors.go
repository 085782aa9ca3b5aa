package script

import "errors"

// Errors for script execution.
var (
	// ErrClosed is returned when using a closed State.
	ErrClosed = errors.New("script: state is closed")

	// ErrNoCompare is returned when a sort script defines no compare function.
	ErrNoCompare = errors.New("script: compare function not defined")

	// ErrBadResult is returned when compare returns neither a number nor a boolean.
	ErrBadResult = errors.New("script: compare must return a number or boolean")
)
