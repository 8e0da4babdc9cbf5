// Package toolstest provides a scripted tools.Runner for tests.
package toolstest

import (
	"context"
	"strings"
	"sync"

	"github.com/tanq16/tgrelay/internal/tools"
)

type Call struct {
	Name string
	Args []string
}

// Has reports whether the call carries arg verbatim.
func (c Call) Has(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// After returns the argument following flag, or "" if flag is absent.
func (c Call) After(flag string) string {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}

func (c Call) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

type Handler func(ctx context.Context, call Call, lineFn func(string)) (tools.Result, error)

type Fake struct {
	mu      sync.Mutex
	calls   []Call
	Handler Handler
}

func New(h Handler) *Fake {
	return &Fake{Handler: h}
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (tools.Result, error) {
	return f.do(ctx, nil, name, args)
}

func (f *Fake) Stream(ctx context.Context, lineFn func(string), name string, args ...string) (tools.Result, error) {
	return f.do(ctx, lineFn, name, args)
}

func (f *Fake) do(ctx context.Context, lineFn func(string), name string, args []string) (tools.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.Handler == nil {
		return tools.Result{}, nil
	}
	return f.Handler(ctx, call, lineFn)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo filters recorded calls by tool name.
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
