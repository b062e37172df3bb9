package testsupport

import (
	"context"
	"fmt"
	"sync"
)

// Call records one invocation of the fake runner.
type Call struct {
	Name string
	Args []string
}

// FakeRunner implements tools.Runner for tests. Each method delegates to the
// corresponding func field; unset fields succeed with empty output.
type FakeRunner struct {
	mu         sync.Mutex
	Calls      []Call
	RunFunc    func(ctx context.Context, name string, args ...string) ([]byte, error)
	StreamFunc func(ctx context.Context, name string, args []string, onLine func(string)) error
	LookFunc   func(name string) (string, error)
}

func (f *FakeRunner) record(name string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Name: name, Args: append([]string(nil), args...)})
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.record(name, args)
	if f.RunFunc != nil {
		return f.RunFunc(ctx, name, args...)
	}
	return nil, nil
}

func (f *FakeRunner) RunStream(ctx context.Context, name string, args []string, onLine func(string)) error {
	f.record(name, args)
	if f.StreamFunc != nil {
		return f.StreamFunc(ctx, name, args, onLine)
	}
	return nil
}

func (f *FakeRunner) Look(name string) (string, error) {
	if f.LookFunc != nil {
		return f.LookFunc(name)
	}
	return "/usr/bin/" + name, nil
}

// CallsFor returns the recorded calls matching the given tool name.
func (f *FakeRunner) CallsFor(name string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []Call
	for _, call := range f.Calls {
		if call.Name == name {
			matched = append(matched, call)
		}
	}
	return matched
}

// HasArg reports whether the call contains the exact argument.
func (c Call) HasArg(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// ArgAfter returns the argument following the first occurrence of flag.
func (c Call) ArgAfter(flag string) (string, error) {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1], nil
		}
	}
	return "", fmt.Errorf("flag %q not found in %v", flag, c.Args)
}
