// Package events fans resolution lifecycle events out to caller-supplied
// hooks: progress dashboards, audit trails and tests all observe the engine
// the same way without the core importing any of them.
package events

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Verbs emitted by the resolution engine.
const (
	ResolveStart     = "resolve.start"
	ResolveCacheHit  = "resolve.cache_hit"
	ResolveFulfilled = "resolve.fulfilled"
	ResolveRejected  = "resolve.rejected"
)

// Event describes one resolution occurrence. Identifiers are stringly-typed
// so call sites stay decoupled from the core's key types.
type Event struct {
	Verb       string
	Key        string
	Scope      string
	Version    string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized resolution events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events without a verb or key are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.Key == "" {
		return nil
	}
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers and stamps OccurredAt when missing.
func NormalizeEvent(event Event) Event {
	event.Verb = strings.TrimSpace(event.Verb)
	event.Key = strings.TrimSpace(event.Key)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	out := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}
