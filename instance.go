package content

// InstanceKind discriminates what a resolved handle holds.
type InstanceKind int

const (
	// ElementInstance is a component instantiated through the registry.
	ElementInstance InstanceKind = iota
	// TextInstance is an inline text run.
	TextInstance
	// ErrorInstance is an inline, renderable error result standing in for a
	// node that could not be instantiated.
	ErrorInstance
)

// Instance is the runtime result of resolving one (node, scope, overrides)
// triple. Instances are owned by their handle and read-only once the handle
// settles.
type Instance struct {
	Kind InstanceKind

	// Node is the static descriptor the instance was built from, with
	// overrides already applied. Nil for text runs.
	Node *StaticNode

	// ScopedKey is the reactive-store identity of this instance.
	ScopedKey ScopedStateKey

	// Scope is the prefix this instance was resolved under.
	Scope ScopePrefix

	// Kids holds the resolved child handles in authored order.
	Kids []*Handle

	// Attributes is the handler's decoded attribute schema when one was
	// declared, otherwise nil; the raw merged map stays on Node.Attributes.
	Attributes any

	// Value is whatever the handler's Setup returned.
	Value any

	// Text is the literal content of a TextInstance.
	Text string

	// Problem describes an ErrorInstance.
	Problem *Problem
}

// Tag returns the instance's component tag, or the empty string for text
// runs and store misses.
func (in *Instance) Tag() string {
	if in == nil || in.Node == nil {
		return ""
	}
	return in.Node.Tag
}
