package commander

import (
	"time"

	"github.com/dshills/outliner/internal/outline/history"
	"github.com/dshills/outliner/internal/outline/ident"
)

// Default configuration values.
const (
	DefaultMaxUndo        = history.DefaultMaxEntries
	DefaultCoalesceWindow = 2 * time.Second
)

// Logger receives commander diagnostics. *app.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Option configures a Commander during creation.
type Option func(*Commander)

// WithGenerator shares an identity generator between commanders. It takes
// precedence over WithNamespace.
func WithGenerator(g *ident.Generator) Option {
	return func(c *Commander) {
		c.gen = g
	}
}

// WithNamespace creates a private generator for namespace. Commanders that
// may create nodes in the same second should share a generator instead.
func WithNamespace(namespace string) Option {
	return func(c *Commander) {
		c.namespace = namespace
	}
}

// WithMaxUndo bounds the undo history.
func WithMaxUndo(n int) Option {
	return func(c *Commander) {
		if n > 0 {
			c.maxUndo = n
		}
	}
}

// WithCoalesceWindow sets how close consecutive typing must be to share
// one undo step. Zero disables the time limit.
func WithCoalesceWindow(d time.Duration) Option {
	return func(c *Commander) {
		if d >= 0 {
			c.window = d
		}
	}
}

// WithLogger sets the diagnostics logger. A nil logger discards output.
func WithLogger(l Logger) Option {
	return func(c *Commander) {
		if l != nil {
			c.log = l
		}
	}
}
