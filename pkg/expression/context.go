package expression

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a pure callable registered against the evaluator.
type Function func(args ...any) (any, error)

// FunctionRegistry stores caller-supplied functions keyed by name. Names are
// case-sensitive, matching identifier lookup in expressions.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register stores fn under name, guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("expression: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("expression: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("expression: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *FunctionRegistry) Lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	return fn(args...)
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Context is the three-namespace environment expressions evaluate against:
// per-component scoped state ('@'), static content text ('#') and global
// variables ('$'), plus bindings and functions resolved from bare
// identifiers.
type Context struct {
	// ComponentState maps scoped identifiers to their state fields.
	ComponentState map[string]any
	// Content maps identifiers to the authored text of their node.
	Content map[string]string
	// Globals holds driver-supplied variables.
	Globals map[string]any
	// Bindings are bare-identifier values, consulted after the built-in
	// namespaces and the function registry.
	Bindings map[string]any
	// Functions holds caller-registered pure functions.
	Functions *FunctionRegistry
}

// NewContext merges partial over empty defaults and installs the
// always-available helpers. Evaluation itself never mutates a context, so
// one context can back many expressions.
func NewContext(partial Context) *Context {
	ctx := partial
	if ctx.ComponentState == nil {
		ctx.ComponentState = map[string]any{}
	}
	if ctx.Content == nil {
		ctx.Content = map[string]string{}
	}
	if ctx.Globals == nil {
		ctx.Globals = map[string]any{}
	}
	if ctx.Bindings == nil {
		ctx.Bindings = map[string]any{}
	}
	if ctx.Functions == nil {
		ctx.Functions = NewFunctionRegistry()
	} else {
		ctx.Functions = ctx.Functions.Clone()
	}
	installHelpers(&ctx)
	return &ctx
}

// installHelpers registers the default helper functions unless the caller
// shadowed them.
func installHelpers(ctx *Context) {
	if _, taken := ctx.Functions.Lookup("wordCount"); !taken {
		_ = ctx.Functions.Register("wordCount", func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expression: wordCount takes one argument, got %d", len(args))
			}
			text, ok := args[0].(string)
			if !ok {
				if args[0] == nil {
					return float64(0), nil
				}
				return nil, fmt.Errorf("expression: wordCount takes a string, got %T", args[0])
			}
			return float64(len(strings.Fields(text))), nil
		})
	}
}
