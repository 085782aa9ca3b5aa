// Package ident issues durable, globally unique node identifiers.
//
// An id has the form
//
//	<namespace>.<YYYYMMDDhhmmss>[.<n>]
//
// where the timestamp has one-second resolution and n is a per-second
// counter. The first id issued in a given second carries no counter; later
// ids in the same second carry 1, 2, 3, ... The counter resets whenever the
// second changes. The namespace prefix keeps ids from independently produced
// documents apart.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StampLayout is the time layout of the timestamp component.
const StampLayout = "20060102150405"

// Errors returned by the generator.
var (
	// ErrInvalidNamespace indicates an empty namespace or one containing a dot.
	ErrInvalidNamespace = errors.New("invalid id namespace")

	// ErrMalformedID indicates an id that does not follow the id format.
	ErrMalformedID = errors.New("malformed node id")
)

// Generator issues ids for one namespace.
//
// A Generator is safe for concurrent use; independent documents in the same
// process share one.
type Generator struct {
	mu        sync.Mutex
	namespace string
	clock     func() time.Time
	stamp     string
	counter   int
	ahead     map[string]int // highest counter seen per stamp later than stamp
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// New creates a generator for the given namespace.
func New(namespace string, opts ...Option) (*Generator, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	g := &Generator{
		namespace: namespace,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ValidateNamespace reports whether ns can prefix ids.
func ValidateNamespace(ns string) error {
	if ns == "" || strings.ContainsAny(ns, ". \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

// DefaultNamespace returns a namespace derived from a random UUID, used when
// no user namespace is configured.
func DefaultNamespace() string {
	id := uuid.New()
	return "u" + strings.ReplaceAll(id.String(), "-", "")[:12]
}

// Namespace returns the generator's namespace.
func (g *Generator) Namespace() string {
	return g.namespace
}

// Next returns a fresh id.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.clock().Format(StampLayout)
	if stamp != g.stamp {
		g.stamp = stamp
		g.counter = 0
		if n, ok := g.ahead[stamp]; ok {
			g.counter = n + 1
		}
		g.prune()
	} else {
		g.counter++
	}
	return Format(g.namespace, g.stamp, g.counter)
}

// prune drops reservations the clock has reached.
func (g *Generator) prune() {
	for stamp := range g.ahead {
		if stamp <= g.stamp {
			delete(g.ahead, stamp)
		}
	}
}

// Observe informs the generator of an id read from storage. An id in the
// generator's namespace stamped with the current second advances the
// counter past it. One stamped with a later second, as written by a host
// whose clock runs ahead, is reserved until the clock reaches that second.
// Ids from earlier seconds are ignored; a clock that steps backwards can
// still reissue them.
func (g *Generator) Observe(id string) {
	ns, stamp, n, err := Parse(id)
	if err != nil || ns != g.namespace {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock().Format(StampLayout)
	switch {
	case stamp < now:
		return
	case stamp > now:
		if g.ahead == nil {
			g.ahead = make(map[string]int)
		}
		if m, ok := g.ahead[stamp]; !ok || n > m {
			g.ahead[stamp] = n
		}
		return
	}
	if stamp != g.stamp {
		g.stamp = stamp
		g.counter = n
		if m, ok := g.ahead[stamp]; ok && m > n {
			g.counter = m
		}
		g.prune()
		return
	}
	if n > g.counter {
		g.counter = n
	}
}

// Format assembles an id from its parts.
func Format(namespace, stamp string, n int) string {
	if n == 0 {
		return namespace + "." + stamp
	}
	return namespace + "." + stamp + "." + strconv.Itoa(n)
}

// Parse splits an id into namespace, timestamp and counter.
func Parse(id string) (namespace, stamp string, n int, err error) {
	parts := strings.Split(id, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	namespace, stamp = parts[0], parts[1]
	if namespace == "" || len(stamp) != len(StampLayout) {
		return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	if _, perr := time.Parse(StampLayout, stamp); perr != nil {
		return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	if len(parts) == 3 {
		n, err = strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
		}
	}
	return namespace, stamp, n, nil
}
