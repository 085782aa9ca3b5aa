package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrDocumentNotFound indicates a document is not open.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentAlreadyOpen indicates a document with that name is open.
	ErrDocumentAlreadyOpen = errors.New("document already open")

	// ErrUnsavedChanges indicates there are unsaved changes.
	ErrUnsavedChanges = errors.New("unsaved changes")

	// ErrScratchDocument indicates a never-saved document needs SaveAs.
	ErrScratchDocument = errors.New("scratch document has no storage name")

	// ErrNoStorage indicates the manager has no storage backend.
	ErrNoStorage = errors.New("no storage configured")
)

// OperationError records which operation on which document failed.
type OperationError struct {
	Op     string // "open", "save", "close"
	Target string // document name
	Err    error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
