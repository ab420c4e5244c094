package content

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-content/internal/hydrate"
	"github.com/goliatone/go-content/pkg/events"
)

// Fetcher supplies nodes that are not yet published locally, e.g. from a
// remote item bank. A store miss with a fetcher configured keeps the handle
// pending while the fetch runs; without one the miss becomes an inline
// error result immediately.
type Fetcher interface {
	Fetch(ctx context.Context, key CanonicalKey) (*StaticNode, error)
}

// Engine is the resolution/render core. Given a reference or node plus a
// scope prefix it looks up the static descriptor, resolves the handler from
// the injected registry, validates attributes, applies overrides, derives
// child scopes and returns an identity-stable handle to the instantiated
// result. Everything but a fetcher round-trip settles synchronously.
type Engine struct {
	store    *Store
	registry *Registry
	fetcher  Fetcher
	state    StateAccessor
	logger   ResolveLogger
	emitter  *events.Emitter
	decoder  *hydrate.Decoder
	validate *validator.Validate
	baseCtx  context.Context

	cache *resolutionCache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFetcher wires an asynchronous node source for store misses.
func WithFetcher(f Fetcher) EngineOption {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// WithState gives handlers access to the reactive store during setup.
func WithState(s StateAccessor) EngineOption {
	return func(e *Engine) {
		e.state = s
	}
}

// WithResolveLogger attaches a resolution logger.
func WithResolveLogger(l ResolveLogger) EngineOption {
	return func(e *Engine) {
		if l == nil {
			e.logger = noopResolveLogger{}
			return
		}
		e.logger = l
	}
}

// WithHooks fans resolution lifecycle events out to hooks.
func WithHooks(hooks events.Hooks) EngineOption {
	return func(e *Engine) {
		e.emitter = events.NewEmitter(hooks, events.Config{Enabled: true})
	}
}

// WithBaseContext sets the context handed to handler setups and fetches.
func WithBaseContext(ctx context.Context) EngineOption {
	return func(e *Engine) {
		if ctx != nil {
			e.baseCtx = ctx
		}
	}
}

// New constructs an engine over one graph store and one handler registry.
// Both are explicit values; two engines never share caches or registries.
func New(store *Store, registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		registry: registry,
		logger:   noopResolveLogger{},
		decoder:  hydrate.NewDecoder(hydrate.WithDisallowUnknownFields()),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.cache = newResolutionCache(store.Version())
	return e
}

// UseStore swaps in a new graph version. The previous version's cache is
// dropped wholesale; in-flight work against it simply becomes unreachable.
func (e *Engine) UseStore(store *Store) {
	if store == nil || store.Version() == e.cache.version {
		return
	}
	e.store = store
	e.cache = newResolutionCache(store.Version())
}

// Version returns the graph version this engine currently resolves against.
func (e *Engine) Version() string {
	return e.cache.version
}

// Resolve is the primary entry point: it resolves ref under scope and
// returns the cached handle. Reference syntax errors are returned eagerly —
// they indicate a caller bug, not bad content.
func (e *Engine) Resolve(ref string, scope ScopePrefix) (*Handle, error) {
	info, err := Classify(ref)
	if err != nil {
		return nil, err
	}
	if info.Kind == RefParentRelative {
		return nil, &UnsupportedReferenceError{Ref: ref}
	}
	if info.Kind == RefAbsolute {
		// Absolute references bypass the scope for both state identity and
		// caching, so every occurrence shares one instance.
		scope = ""
	}
	return e.resolveNodeRef(CanonicalKey(info.Bare), scope, nil, nil), nil
}

// ResolveNode resolves an already-held static descriptor under scope,
// bypassing the store lookup. Useful for drivers that hold an entry node.
func (e *Engine) ResolveNode(node *StaticNode, scope ScopePrefix) *Handle {
	key := CompositeKey{identity: graphIdentity(node.Key), scope: string(scope)}
	if node.Key == "" {
		key.identity = fmt.Sprintf("node:%p", node)
	}
	h, created := e.cache.intern(key)
	if created {
		e.logStart(key)
		e.instantiate(h, key, node, node.Key, scope, nil)
	} else {
		e.logCacheHit(key)
	}
	return h
}

// ResolveKids resolves a kid list under scope, preserving authored order.
// Each kid resolves independently; one bad kid never blocks its siblings.
func (e *Engine) ResolveKids(kids []KidRef, scope ScopePrefix) []*Handle {
	handles := make([]*Handle, len(kids))
	for i, kid := range kids {
		handles[i] = e.resolveKid(kid, scope, nil)
	}
	return handles
}

// resolveNodeRef resolves a graph reference that has already been reduced to
// its canonical key and effective scope. path carries the composite keys of
// resolutions currently in progress on this chain, for cycle detection.
func (e *Engine) resolveNodeRef(key CanonicalKey, scope ScopePrefix, overrides map[string]any, path []string) *Handle {
	ck := CompositeKey{
		identity:    graphIdentity(key),
		scope:       string(scope),
		fingerprint: overridesFingerprint(overrides),
	}
	h, created := e.cache.intern(ck)
	if !created {
		if slices.Contains(path, ck.identity) {
			// The pending handle is our own ancestor: a true cycle. Reject
			// the whole chain with the offending path instead of recursing
			// without bound.
			h.reject(&CycleError{Path: append(slices.Clone(path), ck.identity)})
		}
		e.logCacheHit(ck)
		return h
	}
	e.logStart(ck)

	node, err := e.store.Lookup(key)
	if err != nil {
		if e.fetcher == nil {
			h.fulfill(e.problemInstance(scope, &Problem{Kind: ProblemNotFound, Key: key, Err: err}))
			return h
		}
		fetchPath := slices.Clone(path)
		go func() {
			fetched, ferr := e.fetcher.Fetch(e.baseCtx, key)
			if ferr != nil || fetched == nil {
				h.fulfill(e.problemInstance(scope, &Problem{Kind: ProblemNotFound, Key: key, Err: ferr}))
				return
			}
			e.instantiate(h, ck, fetched, key, scope, fetchPath, overrideSet(overrides)...)
		}()
		return h
	}

	e.instantiate(h, ck, node, key, scope, path, overrideSet(overrides)...)
	return h
}

// overrideSet avoids spreading a nil map through instantiate's variadic tail.
func overrideSet(overrides map[string]any) []map[string]any {
	if len(overrides) == 0 {
		return nil
	}
	return []map[string]any{overrides}
}

func (e *Engine) resolveKid(kid KidRef, scope ScopePrefix, path []string) *Handle {
	switch k := kid.(type) {
	case TextRun:
		return settledHandle(&Instance{Kind: TextInstance, Text: k.Text, Scope: scope})
	case NodeRef:
		info, err := Classify(k.Ref)
		if err != nil {
			h := newHandle()
			h.reject(err)
			return h
		}
		if info.Kind == RefParentRelative {
			h := newHandle()
			h.reject(&UnsupportedReferenceError{Ref: k.Ref})
			return h
		}
		if info.Kind == RefAbsolute {
			scope = ""
		}
		return e.resolveNodeRef(CanonicalKey(info.Bare), scope, k.Overrides, path)
	case *InlineNode:
		return e.resolveInline(k, scope, path)
	default:
		h := newHandle()
		h.reject(fmt.Errorf("content: unknown kid ref %T", kid))
		return h
	}
}

func (e *Engine) resolveInline(inline *InlineNode, scope ScopePrefix, path []string) *Handle {
	ck := CompositeKey{identity: inlineIdentity(inline), scope: string(scope)}
	h, created := e.cache.intern(ck)
	if !created {
		e.logCacheHit(ck)
		return h
	}
	e.logStart(ck)
	node := &StaticNode{
		Tag:        inline.Tag,
		Attributes: inline.Attributes,
		Kids:       inline.Kids,
		Provenance: inline.Provenance,
	}
	e.instantiate(h, ck, node, "", scope, path)
	return h
}

// instantiate performs steps 6-9 of the resolution algorithm for the handle
// registered under ck: handler lookup, attribute validation, child scope
// derivation, ordered kid resolution, then setup once every kid settles.
func (e *Engine) instantiate(h *Handle, ck CompositeKey, node *StaticNode, key CanonicalKey, scope ScopePrefix, path []string, overrides ...map[string]any) {
	e.watchSettle(h, ck, time.Now())

	for _, o := range overrides {
		node = ApplyOverrides(node, o)
	}

	scopedKey := joinScoped(scope, key)
	if key == "" {
		scopedKey = joinScoped(scope, CanonicalKey(node.Tag))
	}

	spec, ok := e.registry.Lookup(node.Tag)
	if !ok {
		h.fulfill(e.problemInstance(scope, &Problem{Kind: ProblemUnknownTag, Key: key, Tag: node.Tag}))
		return
	}

	var decoded any
	if spec.AttributeSchema != nil {
		target := spec.AttributeSchema()
		hctx := hydrate.Context{Key: string(key), Tag: node.Tag, Scope: string(scope)}
		if err := e.decoder.Decode(hctx, node.Attributes, target); err != nil {
			h.fulfill(e.problemInstance(scope, &Problem{
				Kind: ProblemInvalidAttributes,
				Key:  key,
				Tag:  node.Tag,
				Err:  err,
			}))
			return
		}
		if err := e.validate.Struct(target); err != nil {
			h.fulfill(e.problemInstance(scope, &Problem{
				Kind:   ProblemInvalidAttributes,
				Key:    key,
				Tag:    node.Tag,
				Fields: validationFields(err),
				Err:    err,
			}))
			return
		}
		decoded = target
	}

	kidScopes := make([]ScopePrefix, len(node.Kids))
	for i := range kidScopes {
		kidScopes[i] = scope
	}
	if spec.ChildScopes != nil {
		derived := spec.ChildScopes(node, scope, node.Kids)
		if len(derived) != len(node.Kids) {
			h.reject(&HandlerError{
				Tag: node.Tag,
				Key: key,
				Err: fmt.Errorf("child scope strategy returned %d scopes for %d kids", len(derived), len(node.Kids)),
			})
			return
		}
		kidScopes = derived
	}

	childPath := append(slices.Clone(path), ck.identity)
	kids := make([]*Handle, len(node.Kids))
	for i, kid := range node.Kids {
		kids[i] = e.resolveKid(kid, kidScopes[i], childPath)
	}

	whenAllSettled(kids, func() {
		e.setup(h, spec, node, key, scope, scopedKey, decoded, kids)
	})
}

// setup runs the handler with panic recovery at the resolution boundary:
// a throwing handler becomes a rejected handle carrying the original error,
// never an escaping panic.
func (e *Engine) setup(h *Handle, spec HandlerSpec, node *StaticNode, key CanonicalKey, scope ScopePrefix, scopedKey ScopedStateKey, decoded any, kids []*Handle) {
	defer func() {
		if r := recover(); r != nil {
			h.reject(&HandlerError{Tag: node.Tag, Key: key, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	var value any
	if spec.Setup != nil {
		var err error
		value, err = spec.Setup(&SetupContext{
			Context:    e.baseCtx,
			Node:       node,
			Scope:      scope,
			ScopedKey:  scopedKey,
			Attributes: decoded,
			Kids:       kids,
			State:      e.state,
		})
		if err != nil {
			h.reject(&HandlerError{Tag: node.Tag, Key: key, Err: err})
			return
		}
	}

	h.fulfill(&Instance{
		Kind:       ElementInstance,
		Node:       node,
		ScopedKey:  scopedKey,
		Scope:      scope,
		Kids:       kids,
		Attributes: decoded,
		Value:      value,
	})
}

func (e *Engine) problemInstance(scope ScopePrefix, p *Problem) *Instance {
	return &Instance{Kind: ErrorInstance, Scope: scope, Problem: p}
}

// whenAllSettled runs fn once every handle settles. With zero handles or an
// all-settled list it runs synchronously on the calling goroutine; the last
// kid to settle otherwise carries fn on its own goroutine.
func whenAllSettled(handles []*Handle, fn func()) {
	if len(handles) == 0 {
		fn()
		return
	}
	remaining := new(atomic.Int64)
	remaining.Store(int64(len(handles)))
	for _, h := range handles {
		h.Subscribe(func(*Instance, error) {
			if remaining.Add(-1) == 0 {
				fn()
			}
		})
	}
}

func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
