package content

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// StateAccessor is the slice of the reactive store a handler may touch while
// setting up: field reads and writes under its scoped state key. The
// pkg/state stores satisfy it.
type StateAccessor interface {
	Get(ctx context.Context, key, field string) (any, bool, error)
	Set(ctx context.Context, key, field string, value any) error
}

// SetupContext carries everything a handler's Setup receives: the merged
// node, the instance identity, the resolved kid handles in authored order,
// decoded attributes when a schema was declared, and state access for
// seeding initial values.
type SetupContext struct {
	Context    context.Context
	Node       *StaticNode
	Scope      ScopePrefix
	ScopedKey  ScopedStateKey
	Attributes any
	Kids       []*Handle
	State      StateAccessor
}

// SetupFunc instantiates one component. Whatever it returns becomes the
// instance's Value. A panic here is recovered at the resolution boundary and
// surfaces as a rejected handle.
type SetupFunc func(sc *SetupContext) (any, error)

// ChildScopesFunc lets a repeatable container request one child scope per
// rendered copy. It must return exactly len(kids) prefixes; nil means every
// kid inherits the parent scope.
type ChildScopesFunc func(node *StaticNode, scope ScopePrefix, kids []KidRef) []ScopePrefix

// PerKidScopes is the usual repeatable-container strategy: kid i is scoped
// under containerKey:i, so each rendered copy of a shared node gets
// independent state.
func PerKidScopes(node *StaticNode, scope ScopePrefix, kids []KidRef) []ScopePrefix {
	scopes := make([]ScopePrefix, len(kids))
	for i := range kids {
		scopes[i] = ExtendScope(scope, string(node.Key)+ScopeSeparator+strconv.Itoa(i))
	}
	return scopes
}

// HandlerSpec describes one registered component type. The variant set a
// document can contain is exactly the set of registered specs; dispatch is a
// map lookup on the tag, nothing reflective.
type HandlerSpec struct {
	Tag string

	// Setup instantiates the component. Optional; without it the instance's
	// Value stays nil and the node still resolves around its kids.
	Setup SetupFunc

	// AttributeSchema returns a fresh pointer-to-struct the node's merged
	// attributes are decoded and validated into. Optional.
	AttributeSchema func() any

	// ChildScopes derives per-kid scopes for repeatable containers.
	ChildScopes ChildScopesFunc

	// RequiresParent names a tag this component only renders under, e.g. an
	// answer option inside its question. Enforced by handlers, recorded here
	// for tooling.
	RequiresParent string
}

// Registry maps tags to handler specs. It is an explicit value injected into
// the engine, never a module-level singleton, so independent graph versions
// and tests cannot contaminate each other.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerSpec
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerSpec)}
}

// Register stores spec under its tag, guarding against duplicates.
func (r *Registry) Register(spec HandlerSpec) error {
	if spec.Tag == "" {
		return fmt.Errorf("content: handler tag must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string]HandlerSpec)
	}
	if _, exists := r.handlers[spec.Tag]; exists {
		return fmt.Errorf("content: handler for tag %q already registered", spec.Tag)
	}
	r.handlers[spec.Tag] = spec
	return nil
}

// Lookup returns the spec registered for tag.
func (r *Registry) Lookup(tag string) (HandlerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.handlers[tag]
	return spec, ok
}

// Clone returns a shallow copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Registry{handlers: make(map[string]HandlerSpec, len(r.handlers))}
	for tag, spec := range r.handlers {
		clone.handlers[tag] = spec
	}
	return clone
}

// Tags returns the registered tags sorted alphabetically.
func (r *Registry) Tags() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
