package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/outliner/internal/outline/mutate"
)

// DefaultCallTimeout bounds a single call into Lua.
const DefaultCallTimeout = time.Second

// State is a restricted Lua state. It is safe for concurrent use; calls
// are serialized.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

// Option configures a State.
type Option func(*State)

// WithCallTimeout sets the per-call timeout. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// New creates a restricted Lua state.
func New(opts ...Option) *State {
	s := &State{timeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	s.L = L
	return s
}

// DoString runs code in the state.
func (s *State) DoString(code string) error {
	return s.do(func(L *lua.LState) error { return L.DoString(code) })
}

// DoFile runs the file at path in the state.
func (s *State) DoFile(path string) error {
	return s.do(func(L *lua.LState) error { return L.DoFile(path) })
}

func (s *State) do(fn func(*lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn(s.L)
}

// Comparator returns a sort comparator backed by the script's global
// compare function.
func (s *State) Comparator() (mutate.Compare, error) {
	s.mu.Lock()
	closed := s.closed
	var fn lua.LValue = lua.LNil
	if !closed {
		fn = s.L.GetGlobal("compare")
	}
	s.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if fn.Type() != lua.LTFunction {
		return nil, ErrNoCompare
	}

	return func(a, b mutate.Entry) (int, error) {
		var out int
		err := s.do(func(L *lua.LState) error {
			n, isBool, err := call(L, fn, a, b)
			if err != nil {
				return err
			}
			out = n
			if isBool && n == 0 {
				// false only says a is not before b; ask the reverse to
				// tell equal entries apart.
				rn, _, err := call(L, fn, b, a)
				if err != nil {
					return err
				}
				if rn < 0 {
					out = 1
				}
			}
			return nil
		})
		return out, err
	}, nil
}

// call invokes fn(a, b) and returns the sign of a numeric result. A true
// boolean maps to -1 and false to 0, with isBool set.
func call(L *lua.LState, fn lua.LValue, a, b mutate.Entry) (n int, isBool bool, err error) {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, entryTable(L, a), entryTable(L, b)); err != nil {
		return 0, false, err
	}
	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case lua.LNumber:
		switch {
		case v < 0:
			return -1, false, nil
		case v > 0:
			return 1, false, nil
		}
		return 0, false, nil
	case lua.LBool:
		if v {
			return -1, true, nil
		}
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("%w: got %s", ErrBadResult, ret.Type())
}

func entryTable(L *lua.LState, e mutate.Entry) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(e.ID))
	t.RawSetString("headline", lua.LString(e.Headline))
	t.RawSetString("body", lua.LString(e.Body))
	return t
}

// Close releases the Lua state.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}
