package content

import (
	"fmt"
	"strings"
)

// ScopeSeparator joins scope segments and canonical keys into scoped state
// keys. Bare identifiers may not contain it.
const ScopeSeparator = ":"

// CanonicalKey is the graph-lookup identity of a node. The canonical key
// space is prefix-free: scope prefixes apply to state keys only, never to
// graph lookups.
type CanonicalKey string

// ScopedStateKey identifies one instantiation of a node in the reactive
// store. Two instances of the same node under different scope prefixes get
// distinct scoped keys and therefore independent state.
type ScopedStateKey string

// ScopePrefix is the ordered, separator-joined path accumulated while
// descending into repeatable containers. The empty prefix is the document
// root.
type ScopePrefix string

// RefKind classifies the syntactic form of an author-facing reference.
type RefKind int

const (
	// RefRelative is a bare reference (`foo`); the current scope applies.
	RefRelative RefKind = iota
	// RefAbsolute is a slash-prefixed reference (`/foo`); scope is bypassed.
	RefAbsolute
	// RefExplicitRelative is a `./foo` reference, identical in semantics to
	// RefRelative and allowed purely for author clarity.
	RefExplicitRelative
	// RefParentRelative is the reserved `../foo` form. Classification
	// recognises it; key derivation refuses it.
	RefParentRelative
)

func (k RefKind) String() string {
	switch k {
	case RefRelative:
		return "relative"
	case RefAbsolute:
		return "absolute"
	case RefExplicitRelative:
		return "explicit-relative"
	case RefParentRelative:
		return "parent-relative"
	default:
		return "unknown"
	}
}

// RefInfo is the result of classifying a reference string.
type RefInfo struct {
	Kind RefKind
	// Bare is the reference with any prefix marker stripped.
	Bare string
}

// MalformedReferenceError reports a reference string that cannot be
// classified. It indicates an authoring or programming bug and is returned
// eagerly rather than being recovered inline.
type MalformedReferenceError struct {
	Ref    string
	Reason string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("content: malformed reference %q: %s", e.Ref, e.Reason)
}

// UnsupportedReferenceError reports use of reserved reference syntax whose
// semantics are deliberately not implemented.
type UnsupportedReferenceError struct {
	Ref string
}

func (e *UnsupportedReferenceError) Error() string {
	return fmt.Sprintf("content: reference %q uses reserved parent-relative syntax, which has no defined semantics yet", e.Ref)
}

// Classify parses ref and reports its syntactic form. It never touches the
// graph. Classification accepts the reserved parent-relative form; only key
// derivation rejects it.
func Classify(ref string) (RefInfo, error) {
	if ref == "" {
		return RefInfo{}, &MalformedReferenceError{Ref: ref, Reason: "reference must not be empty"}
	}

	info := RefInfo{Kind: RefRelative, Bare: ref}
	switch {
	case strings.HasPrefix(ref, "../"):
		info.Kind = RefParentRelative
		info.Bare = ref[len("../"):]
	case strings.HasPrefix(ref, "./"):
		info.Kind = RefExplicitRelative
		info.Bare = ref[len("./"):]
	case strings.HasPrefix(ref, "/"):
		info.Kind = RefAbsolute
		info.Bare = ref[len("/"):]
	}

	if err := checkBare(ref, info.Bare); err != nil {
		return RefInfo{}, err
	}
	return info, nil
}

// checkBare rejects delimiter characters appearing outside their syntactic
// role so a stray `:` or `/` surfaces as a clear authoring error instead of a
// corrupted state key.
func checkBare(ref, bare string) error {
	if bare == "" {
		return &MalformedReferenceError{Ref: ref, Reason: "reference has a prefix marker but no identifier"}
	}
	if strings.Contains(bare, ScopeSeparator) {
		return &MalformedReferenceError{Ref: ref, Reason: fmt.Sprintf("identifier must not contain %q", ScopeSeparator)}
	}
	if strings.Contains(bare, "/") {
		return &MalformedReferenceError{Ref: ref, Reason: "slash is only valid as a leading absolute marker"}
	}
	if strings.Contains(bare, ".") {
		return &MalformedReferenceError{Ref: ref, Reason: "dot is only valid in a leading ./ or ../ marker"}
	}
	return nil
}

// ToCanonicalKey derives the graph-lookup key for ref. The scope argument is
// accepted for interface symmetry but never applied: canonical keys are
// prefix-free regardless of the reference form.
func ToCanonicalKey(ref string, _ ScopePrefix) (CanonicalKey, error) {
	info, err := Classify(ref)
	if err != nil {
		return "", err
	}
	if info.Kind == RefParentRelative {
		return "", &UnsupportedReferenceError{Ref: ref}
	}
	return CanonicalKey(info.Bare), nil
}

// ToScopedStateKey derives the reactive-store identity for ref as seen from
// scope. Absolute references ignore the scope entirely; relative forms join
// onto it.
func ToScopedStateKey(ref string, scope ScopePrefix) (ScopedStateKey, error) {
	info, err := Classify(ref)
	if err != nil {
		return "", err
	}
	switch info.Kind {
	case RefAbsolute:
		return ScopedStateKey(info.Bare), nil
	case RefRelative, RefExplicitRelative:
		return joinScoped(scope, CanonicalKey(info.Bare)), nil
	case RefParentRelative:
		return "", &UnsupportedReferenceError{Ref: ref}
	default:
		return "", &MalformedReferenceError{Ref: ref, Reason: "unknown reference kind"}
	}
}

// ExtendScope appends one segment to scope. Repeatable containers call this
// once per rendered copy, typically with containerID + separator + index as
// the segment.
func ExtendScope(scope ScopePrefix, segment string) ScopePrefix {
	if segment == "" {
		return scope
	}
	if scope == "" {
		return ScopePrefix(segment)
	}
	return scope + ScopePrefix(ScopeSeparator) + ScopePrefix(segment)
}

func joinScoped(scope ScopePrefix, key CanonicalKey) ScopedStateKey {
	if scope == "" {
		return ScopedStateKey(key)
	}
	return ScopedStateKey(string(scope) + ScopeSeparator + string(key))
}
