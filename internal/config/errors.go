package config

import (
	"errors"

	"github.com/dshills/outliner/internal/config/loader"
)

// Errors returned by configuration operations.
var (
	// ErrTypeMismatch indicates a setting holds a value of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidValue indicates a setting is well-typed but out of range.
	ErrInvalidValue = errors.New("invalid value")
)

// ParseError is a syntax error in a configuration file.
type ParseError = loader.ParseError
