package content

import (
	"fmt"
	"strings"
)

// ProblemKind classifies structural content problems that are recovered
// inline rather than propagated: a bad node degrades into a renderable error
// result instead of blanking the surrounding document.
type ProblemKind string

const (
	// ProblemNotFound means a referenced key has no published node.
	ProblemNotFound ProblemKind = "not-found-in-graph"
	// ProblemUnknownTag means no handler is registered for the node's tag.
	ProblemUnknownTag ProblemKind = "unknown-tag"
	// ProblemInvalidAttributes means the node's attributes failed the
	// handler's schema.
	ProblemInvalidAttributes ProblemKind = "attribute-validation-failed"
)

// Problem carries everything needed to render a friendly inline error to a
// content author: the offending key, tag or fields plus the technical detail.
type Problem struct {
	Kind   ProblemKind
	Key    CanonicalKey
	Tag    string
	Fields []string
	Err    error
}

// Message renders the author-facing description of the problem.
func (p *Problem) Message() string {
	switch p.Kind {
	case ProblemNotFound:
		return fmt.Sprintf("nothing is published under %q; check the reference for typos", p.Key)
	case ProblemUnknownTag:
		return fmt.Sprintf("no component handles <%s> (referenced as %q)", p.Tag, p.Key)
	case ProblemInvalidAttributes:
		return fmt.Sprintf("<%s> (%q) has invalid attributes: %s", p.Tag, p.Key, strings.Join(p.Fields, ", "))
	default:
		return fmt.Sprintf("content problem %q at %q", p.Kind, p.Key)
	}
}

func (p *Problem) Error() string {
	msg := p.Message()
	if p.Err != nil {
		return fmt.Sprintf("content: %s: %v", msg, p.Err)
	}
	return "content: " + msg
}

func (p *Problem) Unwrap() error {
	return p.Err
}

// CycleError reports a node that, directly or through its kids, resolves
// back into itself. The static graph is a DAG by intent; a true cycle would
// otherwise recurse without bound, so it is rejected with the offending path.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("content: reference cycle detected: %s", strings.Join(e.Path, " -> "))
}

// HandlerError wraps a failure thrown by a component handler during setup.
// It is caught at the resolution boundary and carried by the rejected handle
// so the original error stays available for diagnostics.
type HandlerError struct {
	Tag string
	Key CanonicalKey
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("content: handler for <%s> (%q) failed: %v", e.Tag, e.Key, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
