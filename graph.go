// Package content turns static, authored content graphs into live,
// per-instance trees of stateful components. It owns the identifier
// resolution scheme, the graph store, the resolution/render engine with its
// identity-stable handle cache, and (via pkg/expression) the expression
// language used to gate progression and grade answers against scoped state.
package content

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-content/layering"
)

// SourceRef records where a node came from in the authored markup, for
// author-facing diagnostics.
type SourceRef struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// StaticNode is one published node of the content graph. Nodes are immutable
// once published; edits produce a new store version. Override application
// operates on copies and never writes back.
type StaticNode struct {
	Key        CanonicalKey
	Tag        string
	Attributes map[string]any
	Kids       []KidRef
	Provenance []SourceRef
}

// KidRef is one child entry of a node: a reference to another node by key, an
// inline text run, or an inline markup fragment with its own kids. The
// variant set is closed.
type KidRef interface {
	isKidRef()
}

// NodeRef references another StaticNode by its author-facing reference
// string, optionally redirecting attributes for the instantiated copy only.
type NodeRef struct {
	Ref       string
	Overrides map[string]any
}

// TextRun is an inline run of literal text.
type TextRun struct {
	Text string
}

// InlineNode is an anonymous markup fragment nested directly in its parent.
// Its identity is the authored fragment itself: two structurally identical
// fragments are still distinct nodes.
type InlineNode struct {
	Tag        string
	Attributes map[string]any
	Kids       []KidRef
	Provenance []SourceRef
}

func (NodeRef) isKidRef()     {}
func (TextRun) isKidRef()     {}
func (*InlineNode) isKidRef() {}

// NotFoundError reports a canonical key absent from the store. The engine
// recovers it into an inline error result; Lookup callers get it directly.
type NotFoundError struct {
	Key CanonicalKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content: no node published under key %q", e.Key)
}

// Store is an immutable-per-version table of published nodes. A new version
// carries a fresh UUID, which the engine uses to scope its resolution cache;
// there is no partial invalidation.
type Store struct {
	version string
	nodes   map[CanonicalKey]*StaticNode
}

// NewStore publishes nodes into a fresh store version. Duplicate keys are an
// authoring error and rejected eagerly. Node attribute maps are cloned so
// later caller mutations cannot reach published nodes.
func NewStore(nodes ...*StaticNode) (*Store, error) {
	s := &Store{
		version: uuid.NewString(),
		nodes:   make(map[CanonicalKey]*StaticNode, len(nodes)),
	}
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if node.Key == "" {
			return nil, fmt.Errorf("content: cannot publish a node without a key (tag %q)", node.Tag)
		}
		if _, exists := s.nodes[node.Key]; exists {
			return nil, fmt.Errorf("content: key %q published twice", node.Key)
		}
		published := *node
		published.Attributes = layering.CloneAttributes(node.Attributes)
		s.nodes[node.Key] = &published
	}
	return s, nil
}

// Publish returns a new store version containing every node of s plus the
// given nodes, replacing any that share a key. The receiver is untouched.
func (s *Store) Publish(nodes ...*StaticNode) (*Store, error) {
	combined := make([]*StaticNode, 0, len(s.nodes)+len(nodes))
	replaced := make(map[CanonicalKey]struct{}, len(nodes))
	for _, node := range nodes {
		if node != nil {
			replaced[node.Key] = struct{}{}
		}
	}
	for key, node := range s.nodes {
		if _, gone := replaced[key]; !gone {
			combined = append(combined, node)
		}
	}
	combined = append(combined, nodes...)
	return NewStore(combined...)
}

// Version returns the identity of this graph version.
func (s *Store) Version() string {
	return s.version
}

// Len reports how many nodes are published.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Lookup returns the node published under key, or a NotFoundError. The
// returned node is shared and must not be mutated; use ApplyOverrides for
// per-instance attribute changes.
func (s *Store) Lookup(key CanonicalKey) (*StaticNode, error) {
	node, ok := s.nodes[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return node, nil
}
